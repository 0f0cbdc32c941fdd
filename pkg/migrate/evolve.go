package migrate

import (
	"context"
	"fmt"

	"github.com/ldraney/pal-e-billing/pkg/db"
	"github.com/ldraney/pal-e-billing/pkg/db/models"
	"github.com/ldraney/pal-e-billing/pkg/logger"
	"gorm.io/gorm"
)

// Column is one additive column applied on top of the base table.
type Column struct {
	Name       string
	Definition string
}

const createSubscribers = `CREATE TABLE IF NOT EXISTS ` + models.SubscriberTable + ` (
	user_id TEXT PRIMARY KEY,
	billing_customer_id TEXT NOT NULL,
	billing_subscription_id TEXT,
	status TEXT NOT NULL DEFAULT 'inactive',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// Columns lists the additive columns in the order they were introduced. Append only.
var Columns = []Column{
	{Name: "tier", Definition: "TEXT NOT NULL DEFAULT 'base' CHECK (tier IN ('base', 'pro', 'custom'))"},
	{Name: "email", Definition: "TEXT"},
	{Name: "ancillary_status", Definition: "TEXT NOT NULL DEFAULT 'none'"},
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_subscribers_customer ON ` + models.SubscriberTable + ` (billing_customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_subscribers_subscription ON ` + models.SubscriberTable + ` (billing_subscription_id)`,
}

// Evolve brings the subscribers table up to the current shape. It is safe to call on every start.
func Evolve(ctx context.Context, conn *gorm.DB, logg *logger.Logger) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	conn = conn.WithContext(ctx)

	if err := conn.Exec(createSubscribers).Error; err != nil {
		return fmt.Errorf("create %s: %w", models.SubscriberTable, err)
	}

	for _, col := range Columns {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", models.SubscriberTable, col.Name, col.Definition)
		err := conn.Exec(stmt).Error
		switch {
		case err == nil:
			if logg != nil {
				logg.Info(logg.WithField(ctx, "column", col.Name), "column added")
			}
		case db.IsDuplicateColumn(err):
			// already applied
		default:
			return fmt.Errorf("add column %s: %w", col.Name, err)
		}
	}

	for _, stmt := range indexes {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// ExistingColumns returns the column names currently present on the subscribers table.
func ExistingColumns(ctx context.Context, conn *gorm.DB) ([]string, error) {
	types, err := conn.WithContext(ctx).Migrator().ColumnTypes(models.SubscriberTable)
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	names := make([]string, 0, len(types))
	for _, ct := range types {
		names = append(names, ct.Name())
	}
	return names, nil
}
