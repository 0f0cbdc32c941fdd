package enums

import "fmt"

// Tier is the service level purchased by a subscriber.
type Tier string

const (
	TierBase   Tier = "base"
	TierPro    Tier = "pro"
	TierCustom Tier = "custom"
)

var validTiers = []Tier{
	TierBase,
	TierPro,
	TierCustom,
}

// String implements fmt.Stringer.
func (t Tier) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t Tier) IsValid() bool {
	for _, candidate := range validTiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTier converts raw input into a Tier.
func ParseTier(value string) (Tier, error) {
	for _, candidate := range validTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tier %q", value)
}

// Tiers lists the accepted tier values in declaration order.
func Tiers() []Tier {
	out := make([]Tier, len(validTiers))
	copy(out, validTiers)
	return out
}
