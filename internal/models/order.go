package models

import (
	"time"
)

type OrderStatus string

const (
	StatusNouvelle    OrderStatus = "NOUVELLE"
	StatusEnAttente   OrderStatus = "EN_ATTENTE"
	StatusConfirmee   OrderStatus = "CONFIRMEE"
	StatusEnvoyee     OrderStatus = "ENVOYEE"
	StatusLivree      OrderStatus = "LIVREE"
	StatusAnnulee     OrderStatus = "ANNULEE"
	StatusRetournee   OrderStatus = "RETOURNEE"
	StatusInjoignable OrderStatus = "INJOIGNABLE"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusNouvelle:    {StatusEnAttente: true, StatusConfirmee: true, StatusAnnulee: true, StatusInjoignable: true},
	StatusEnAttente:   {StatusConfirmee: true, StatusAnnulee: true, StatusInjoignable: true},
	StatusConfirmee:   {StatusEnvoyee: true, StatusAnnulee: true},
	StatusEnvoyee:     {StatusLivree: true, StatusInjoignable: true, StatusAnnulee: true, StatusRetournee: true},
	StatusInjoignable: {StatusConfirmee: true, StatusEnvoyee: true, StatusAnnulee: true},
	StatusLivree:      {},
	StatusAnnulee:     {},
	StatusRetournee:   {},
}

// IsValidStatus reports whether the value is one of the known statuses.
func IsValidStatus(status OrderStatus) bool {
	_, known := validNext[status]
	return known
}

// CanTransition reports whether the status graph allows moving from one
// status to another. Terminal statuses have no outgoing edges.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// IsTerminal reports whether no transition leads out of the given status.
func IsTerminal(status OrderStatus) bool {
	return len(validNext[status]) == 0
}

// AllowedPredecessors returns every status from which the given status is
// reachable in one step. Used by the stores to guard UPDATEs.
func AllowedPredecessors(to OrderStatus) []OrderStatus {
	var from []OrderStatus
	for status, next := range validNext {
		if next[to] {
			from = append(from, status)
		}
	}
	return from
}

type Order struct {
	ID             int64       `json:"id"`
	CustomerName   string      `json:"customer_name"`
	CustomerPhone  string      `json:"customer_phone"`
	CustomerEmail  string      `json:"customer_email"`
	Address        string      `json:"address"`
	City           string      `json:"city"`
	Items          []OrderItem `json:"items"`
	TotalCents     int         `json:"total_cents"`
	DeliveryCents  int         `json:"delivery_cents"`
	Status         OrderStatus `json:"status"`
	Carrier        string      `json:"carrier"`
	TrackingNumber string      `json:"tracking_number"`
	CarrierStatus  string      `json:"carrier_status"`
	SyncedToSheets bool        `json:"synced_to_sheets"`
	Notes          string      `json:"notes"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// OrderItem captures the product reference together with the unit price and
// unit cost frozen at order creation time. They are never recomputed from
// the catalog afterward.
type OrderItem struct {
	ProductID      int64  `json:"product_id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int    `json:"unit_price_cents"`
	// Merchant-internal, kept out of API responses.
	UnitCostCents int `json:"-"`
}
