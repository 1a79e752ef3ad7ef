package db

import (
	"strings"
	"testing"
)

func TestEmbeddedSchemaCoversAllTables(t *testing.T) {
	t.Parallel()

	tables := []string{
		"products", "orders", "order_items",
		"shipping_labels", "sync_logs", "settings", "ad_costs",
	}
	for _, table := range tables {
		if !strings.Contains(schemaSQL, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("schema is missing table %s", table)
		}
	}
}

func TestEmbeddedSchemaIsIdempotent(t *testing.T) {
	t.Parallel()

	// Connect applies the schema on every boot, so every statement has to
	// be safe to re-run.
	for _, line := range strings.Split(schemaSQL, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "CREATE ") && !strings.Contains(trimmed, "IF NOT EXISTS") {
			t.Errorf("statement is not idempotent: %s", trimmed)
		}
	}
}
