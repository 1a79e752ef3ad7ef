package models

import "time"

// ShippingLabel records one carrier shipment attempt outcome for an order.
// Label content is either a URL or an embedded PDF payload, never both.
type ShippingLabel struct {
	ID             int64     `json:"id"`
	OrderID        int64     `json:"order_id"`
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"tracking_number"`
	LabelURL       string    `json:"label_url"`
	PDFContent     []byte    `json:"pdf_content,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
