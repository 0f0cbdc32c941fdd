package enums

// AncillaryStatus tracks the secondary feature activation, independent of billing status.
type AncillaryStatus string

const (
	AncillaryStatusNone    AncillaryStatus = "none"
	AncillaryStatusPending AncillaryStatus = "pending"
	AncillaryStatusActive  AncillaryStatus = "active"
)

var validAncillaryStatuses = []AncillaryStatus{
	AncillaryStatusNone,
	AncillaryStatusPending,
	AncillaryStatusActive,
}

// String implements fmt.Stringer.
func (s AncillaryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s AncillaryStatus) IsValid() bool {
	for _, candidate := range validAncillaryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
