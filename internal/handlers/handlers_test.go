package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDateRangeFromQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		query    string
		wantFrom string
		wantTo   string
		wantErr  bool
	}{
		{
			name:     "explicit range",
			query:    "?from=2026-08-01&to=2026-08-15",
			wantFrom: "2026-08-01",
			wantTo:   "2026-08-16",
		},
		{
			name:     "single day",
			query:    "?from=2026-08-01&to=2026-08-01",
			wantFrom: "2026-08-01",
			wantTo:   "2026-08-02",
		},
		{name: "bad from", query: "?from=01/08/2026", wantErr: true},
		{name: "bad to", query: "?to=yesterday", wantErr: true},
		{name: "inverted range", query: "?from=2026-08-15&to=2026-08-01", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/admin/analytics/summary"+tt.query, nil)
			from, to, err := dateRangeFromQuery(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := from.Format("2006-01-02"); got != tt.wantFrom {
				t.Errorf("from = %s, want %s", got, tt.wantFrom)
			}
			if got := to.Format("2006-01-02"); got != tt.wantTo {
				t.Errorf("to = %s, want %s (inclusive end date)", got, tt.wantTo)
			}
		})
	}
}

func TestDateRangeFromQueryDefaultsToLastMonth(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/admin/analytics/summary", nil)
	from, to, err := dateRangeFromQuery(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !from.Before(to) {
		t.Errorf("default range inverted: %s .. %s", from, to)
	}
	if days := to.Sub(from).Hours() / 24; days < 27 || days > 32 {
		t.Errorf("default window is %0.f days, want about a month", days)
	}
}

func TestCheckoutRequestValidation(t *testing.T) {
	t.Parallel()

	valid := checkoutRequest{
		CustomerName:  "Fatima Zahra",
		CustomerPhone: "0612345678",
		Address:       "12 Rue des Orangers",
		City:          "Rabat",
		Items:         []checkoutItem{{ProductID: 1, Quantity: 2}},
	}

	tests := []struct {
		name    string
		mutate  func(*checkoutRequest)
		wantErr bool
	}{
		{name: "valid", mutate: func(*checkoutRequest) {}},
		{name: "valid with email", mutate: func(r *checkoutRequest) { r.CustomerEmail = "f@example.com" }},
		{name: "missing name", mutate: func(r *checkoutRequest) { r.CustomerName = "" }, wantErr: true},
		{name: "missing phone", mutate: func(r *checkoutRequest) { r.CustomerPhone = "" }, wantErr: true},
		{name: "missing city", mutate: func(r *checkoutRequest) { r.City = "" }, wantErr: true},
		{name: "no items", mutate: func(r *checkoutRequest) { r.Items = nil }, wantErr: true},
		{name: "zero quantity", mutate: func(r *checkoutRequest) { r.Items[0].Quantity = 0 }, wantErr: true},
		{name: "excessive quantity", mutate: func(r *checkoutRequest) { r.Items[0].Quantity = 101 }, wantErr: true},
		{name: "bad email", mutate: func(r *checkoutRequest) { r.CustomerEmail = "not-an-email" }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			request := valid
			request.Items = append([]checkoutItem(nil), valid.Items...)
			tt.mutate(&request)

			err := validate.Struct(request)
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestQuoteRequestValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		request quoteRequest
		wantErr bool
	}{
		{name: "valid", request: quoteRequest{Carrier: "digylog", City: "Rabat", WeightKg: 1.5}},
		{name: "no carrier defaults to active", request: quoteRequest{City: "Rabat", WeightKg: 1}},
		{name: "missing city", request: quoteRequest{Carrier: "digylog"}, wantErr: true},
		{name: "negative weight", request: quoteRequest{City: "Rabat", WeightKg: -1}, wantErr: true},
		{name: "absurd weight", request: quoteRequest{City: "Rabat", WeightKg: 1001}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validate.Struct(tt.request)
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{name: "remote addr", remoteAddr: "203.0.113.10:54321", want: "203.0.113.10"},
		{name: "forwarded single", remoteAddr: "10.0.0.1:80", forwarded: "203.0.113.10", want: "203.0.113.10"},
		{name: "forwarded chain", remoteAddr: "10.0.0.1:80", forwarded: "203.0.113.10, 10.0.0.2", want: "203.0.113.10"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(r); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	h := &Handlers{}
	handler := h.SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := recorder.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := recorder.Header().Get("X-Frame-Options"); got == "" {
		t.Error("X-Frame-Options not set")
	}
}
