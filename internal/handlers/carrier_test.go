package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeWebhookPayloadSpellings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		body         string
		wantTracking string
		wantStatus   string
		wantOrderRef string
	}{
		{
			name:         "snake case",
			body:         `{"tracking_number":"TN1","status":"delivered"}`,
			wantTracking: "TN1",
			wantStatus:   "delivered",
		},
		{
			name:         "camel case tracking",
			body:         `{"trackingNumber":"TN1","status":"delivered"}`,
			wantTracking: "TN1",
			wantStatus:   "delivered",
		},
		{
			name:         "tracking id with shipment status",
			body:         `{"tracking_id":"TN2","shipment_status":"in_transit"}`,
			wantTracking: "TN2",
			wantStatus:   "in_transit",
		},
		{
			name:         "order id carried alongside",
			body:         `{"tracking_number":"TN3","status":"delivered","order_id":42}`,
			wantTracking: "TN3",
			wantStatus:   "delivered",
			wantOrderRef: "42",
		},
		{
			name:         "camel case order reference",
			body:         `{"trackingNumber":"TN3","status":"delivered","orderId":"CMD-42"}`,
			wantTracking: "TN3",
			wantStatus:   "delivered",
			wantOrderRef: "CMD-42",
		},
		{
			name:         "reference field",
			body:         `{"tracking_number":"TN3","status":"returned","reference":"CMD-7"}`,
			wantTracking: "TN3",
			wantStatus:   "returned",
			wantOrderRef: "CMD-7",
		},
		{
			name:         "numeric tracking number",
			body:         `{"tracking_number":1036052,"status":"delivered"}`,
			wantTracking: "1036052",
			wantStatus:   "delivered",
		},
		{
			name:         "unknown extra fields tolerated",
			body:         `{"tracking_number":"TN4","status":"delivered","hub":"casablanca","attempt":3}`,
			wantTracking: "TN4",
			wantStatus:   "delivered",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("POST", "/webhooks/carrier/digylog", strings.NewReader(tt.body))
			payload, err := decodeWebhookPayload(httptest.NewRecorder(), r)
			if err != nil {
				t.Fatalf("decodeWebhookPayload: %v", err)
			}
			if got := payload.tracking(); got != tt.wantTracking {
				t.Errorf("tracking() = %q, want %q", got, tt.wantTracking)
			}
			if got := payload.status(); got != tt.wantStatus {
				t.Errorf("status() = %q, want %q", got, tt.wantStatus)
			}
			if got := payload.orderRef(); got != tt.wantOrderRef {
				t.Errorf("orderRef() = %q, want %q", got, tt.wantOrderRef)
			}
		})
	}
}

func TestDecodeWebhookPayloadRejectsGarbage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `not json`},
		{name: "tracking is an object", body: `{"tracking_number":{"value":"TN1"},"status":"delivered"}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("POST", "/webhooks/carrier/digylog", strings.NewReader(tt.body))
			if _, err := decodeWebhookPayload(httptest.NewRecorder(), r); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestWebhookRefMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref     string
		orderID int64
		want    bool
	}{
		{ref: "42", orderID: 42, want: true},
		{ref: "CMD-42", orderID: 42, want: true},
		{ref: "cmd-42", orderID: 42, want: true},
		{ref: "43", orderID: 42, want: false},
		{ref: "CMD-43", orderID: 42, want: false},
	}
	for _, tt := range tests {
		if got := webhookRefMatches(tt.ref, tt.orderID); got != tt.want {
			t.Errorf("webhookRefMatches(%q, %d) = %v, want %v", tt.ref, tt.orderID, got, tt.want)
		}
	}
}
