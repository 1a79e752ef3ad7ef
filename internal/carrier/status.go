package carrier

import (
	"strings"

	"github.com/tajerapp/tajer/internal/models"
)

// statusTable maps normalized carrier status strings onto the local order
// status.
var statusTable = map[string]models.OrderStatus{
	"delivered":        models.StatusLivree,
	"livre":            models.StatusLivree,
	"picked_up":        models.StatusEnvoyee,
	"in_transit":       models.StatusEnvoyee,
	"out_for_delivery": models.StatusEnvoyee,
	"shipped":          models.StatusEnvoyee,
	"failed":           models.StatusInjoignable,
	"unreachable":      models.StatusInjoignable,
	"no_answer":        models.StatusInjoignable,
	"returned":         models.StatusRetournee,
	"cancelled":        models.StatusAnnulee,
	"canceled":         models.StatusAnnulee,
}

// NormalizeStatus lowercases a carrier's free-text status and collapses
// separators to underscores, so "Out For Delivery" and "out-for-delivery"
// land on the same table key.
func NormalizeStatus(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	replacer := strings.NewReplacer(" ", "_", "-", "_")
	return replacer.Replace(normalized)
}

// MapStatus translates a carrier-native status into the local order status.
// Unknown statuses map to false so pollers leave the order untouched.
func MapStatus(raw string) (models.OrderStatus, bool) {
	status, ok := statusTable[NormalizeStatus(raw)]
	return status, ok
}
