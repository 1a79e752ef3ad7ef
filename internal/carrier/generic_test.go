package carrier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func genericConfig(name Name, apiURL string) Config {
	return Config{Name: name, Enabled: true, APIURL: apiURL, APIKey: "test-key"}
}

func TestGenericCreateShipmentTrackingSpellings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		body         string
		wantTracking string
		wantLabel    string
	}{
		{
			name:         "snake case",
			body:         `{"tracking_number":"OZ123","label_url":"https://labels.example/OZ123.pdf"}`,
			wantTracking: "OZ123",
			wantLabel:    "https://labels.example/OZ123.pdf",
		},
		{
			name:         "camel case",
			body:         `{"trackingNumber":"OZ456"}`,
			wantTracking: "OZ456",
		},
		{
			name:         "tracking_id",
			body:         `{"tracking_id":"OZ789"}`,
			wantTracking: "OZ789",
		},
		{
			name:         "numeric tracking",
			body:         `{"tracking_number":123456}`,
			wantTracking: "123456",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v1/shipments" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer test-key" {
					t.Errorf("authorization = %q", r.Header.Get("Authorization"))
				}
				if r.Header.Get("X-API-Key") != "test-key" {
					t.Errorf("x-api-key = %q", r.Header.Get("X-API-Key"))
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := newGeneric(genericConfig(Ozon, server.URL), server.Client())
			result, err := adapter.CreateShipment(context.Background(), testOrder())
			if err != nil {
				t.Fatalf("CreateShipment failed: %v", err)
			}
			if result.TrackingNumber != tt.wantTracking {
				t.Errorf("tracking = %q, want %q", result.TrackingNumber, tt.wantTracking)
			}
			if result.LabelURL != tt.wantLabel {
				t.Errorf("label url = %q, want %q", result.LabelURL, tt.wantLabel)
			}
		})
	}
}

func TestGenericCreateShipmentPayload(t *testing.T) {
	t.Parallel()

	var payload genericShipmentRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/colis/add" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		_, _ = w.Write([]byte(`{"tracking_number":"CD001"}`))
	}))
	defer server.Close()

	adapter := newGeneric(genericConfig(Cathedis, server.URL), server.Client())
	if _, err := adapter.CreateShipment(context.Background(), testOrder()); err != nil {
		t.Fatalf("CreateShipment failed: %v", err)
	}

	if payload.OrderID != "42" {
		t.Errorf("order id = %q, want 42", payload.OrderID)
	}
	if payload.Recipient.Name != "Fatima Zahra" || payload.Recipient.City != "Rabat" {
		t.Errorf("unexpected recipient: %+v", payload.Recipient)
	}
	if payload.CODAmount != 234.00 {
		t.Errorf("cod amount = %v, want 234.00", payload.CODAmount)
	}
	if len(payload.Items) != 1 || payload.Items[0].UnitPrice != 199.00 {
		t.Errorf("unexpected items: %+v", payload.Items)
	}
}

func TestGenericCreateShipmentErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       int
		body         string
		wantAPIError bool
	}{
		{name: "error field", status: http.StatusOK, body: `{"error":"city not served"}`, wantAPIError: true},
		{name: "http failure", status: http.StatusBadGateway, body: `upstream down`, wantAPIError: true},
		{name: "no tracking", status: http.StatusOK, body: `{"message":"accepted"}`},
		{name: "garbage", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := newGeneric(genericConfig(Sendit, server.URL), server.Client())
			_, err := adapter.CreateShipment(context.Background(), testOrder())
			if err == nil {
				t.Fatal("expected error")
			}
			var apiErr *APIError
			if tt.wantAPIError && !errors.As(err, &apiErr) {
				t.Errorf("expected APIError, got %v", err)
			}
			if !tt.wantAPIError && !errors.Is(err, ErrUnparsableResponse) {
				t.Errorf("expected ErrUnparsableResponse, got %v", err)
			}
		})
	}
}

func TestGenericTrackShipment(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/deliveries/SD777" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"shipment_status":"in transit","detail":"left hub"}`))
	}))
	defer server.Close()

	adapter := newGeneric(genericConfig(Sendit, server.URL), server.Client())
	info, err := adapter.TrackShipment(context.Background(), "SD777")
	if err != nil {
		t.Fatalf("TrackShipment failed: %v", err)
	}
	if info.Status != "in transit" || info.Detail != "left hub" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestDecodeQuoteResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		wantCents int
		wantDays  int
		wantErr   bool
	}{
		{name: "price and estimated_days", body: `{"price":35.5,"estimated_days":2}`, wantCents: 3550, wantDays: 2},
		{name: "rate fallback", body: `{"rate":40,"estimatedDays":3}`, wantCents: 4000, wantDays: 3},
		{name: "rounds up", body: `{"price":29.999}`, wantCents: 3000},
		{name: "no price", body: `{"estimated_days":2}`, wantErr: true},
		{name: "garbage", body: `oops`, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			quote, err := decodeQuoteResponse(Ozon, []byte(tt.body))
			if tt.wantErr {
				if !errors.Is(err, ErrUnparsableResponse) {
					t.Fatalf("expected ErrUnparsableResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if quote.PriceCents != tt.wantCents {
				t.Errorf("price = %d cents, want %d", quote.PriceCents, tt.wantCents)
			}
			if quote.EstimatedDays != tt.wantDays {
				t.Errorf("estimated days = %d, want %d", quote.EstimatedDays, tt.wantDays)
			}
		})
	}
}

func TestFlexString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "string", input: `"abc"`, want: "abc"},
		{name: "integer", input: `42`, want: "42"},
		{name: "float", input: `4.5`, want: "4.5"},
		{name: "null", input: `null`, want: ""},
		{name: "object", input: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var f flexString
			err := json.Unmarshal([]byte(tt.input), &f)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(f) != tt.want {
				t.Errorf("got %q, want %q", f, tt.want)
			}
		})
	}
}
