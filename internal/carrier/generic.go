package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tajerapp/tajer/internal/models"
)

// genericCarrier covers OZON, CATHEDIS and SENDIT, which share a flat JSON
// contract. Both Bearer and X-API-Key auth headers are sent to tolerate
// unknown carrier auth conventions.
type genericCarrier struct {
	cfg       Config
	client    *http.Client
	endpoints endpointMap
}

type endpointMap struct {
	create string
	track  string
	quote  string
}

var genericEndpoints = map[Name]endpointMap{
	Ozon:     {create: "/api/v1/shipments", track: "/api/v1/shipments/%s/tracking", quote: "/api/v1/quotes"},
	Cathedis: {create: "/api/colis/add", track: "/api/colis/%s/track", quote: "/api/tarifs"},
	Sendit:   {create: "/v1/deliveries", track: "/v1/deliveries/%s", quote: "/v1/deliveries/quote"},
}

func newGeneric(cfg Config, client *http.Client) ShipmentCarrier {
	return &genericCarrier{cfg: cfg, client: client, endpoints: genericEndpoints[cfg.Name]}
}

func (g *genericCarrier) Name() Name { return g.cfg.Name }

type genericShipmentRequest struct {
	OrderID   string             `json:"order_id"`
	Recipient genericRecipient   `json:"recipient"`
	CODAmount float64            `json:"cod_amount"`
	Notes     string             `json:"notes,omitempty"`
	Items     []genericOrderItem `json:"items"`
}

type genericRecipient struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
}

type genericOrderItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Name      string  `json:"name"`
}

func (g *genericCarrier) CreateShipment(ctx context.Context, order *models.Order) (*CreateResult, error) {
	items := make([]genericOrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, genericOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: float64(item.UnitPriceCents) / 100,
			Name:      item.Name,
		})
	}

	payload := genericShipmentRequest{
		OrderID: fmt.Sprintf("%d", order.ID),
		Recipient: genericRecipient{
			Name:    order.CustomerName,
			Phone:   order.CustomerPhone,
			Address: order.Address,
			City:    order.City,
		},
		CODAmount: codAmountDH(order),
		Notes:     order.Notes,
		Items:     items,
	}

	body, err := g.post(ctx, g.endpoints.create, payload)
	if err != nil {
		return nil, err
	}

	// Field naming varies across carriers; read every known spelling.
	var resp struct {
		TrackingNumber      flexString `json:"tracking_number"`
		TrackingNumberCamel flexString `json:"trackingNumber"`
		TrackingID          flexString `json:"tracking_id"`
		LabelURL            string     `json:"label_url"`
		Error               string     `json:"error"`
		Message             string     `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnparsableResponse, truncate(body))
	}
	if resp.Error != "" {
		return nil, &APIError{Carrier: g.cfg.Name, Message: resp.Error}
	}

	tracking := firstNonEmpty(string(resp.TrackingNumber), string(resp.TrackingNumberCamel), string(resp.TrackingID))
	if tracking == "" {
		detail := resp.Message
		if detail == "" {
			detail = truncate(body)
		}
		return nil, fmt.Errorf("%w: no tracking number in response: %s", ErrUnparsableResponse, detail)
	}

	return &CreateResult{TrackingNumber: tracking, LabelURL: resp.LabelURL}, nil
}

func (g *genericCarrier) TrackShipment(ctx context.Context, trackingNumber string) (*TrackingInfo, error) {
	path := fmt.Sprintf(g.endpoints.track, trackingNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.APIURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	g.setHeaders(req)

	body, err := g.do(req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Status         string `json:"status"`
		ShipmentStatus string `json:"shipment_status"`
		Detail         string `json:"detail"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnparsableResponse, truncate(body))
	}
	status := firstNonEmpty(resp.Status, resp.ShipmentStatus)
	if status == "" {
		return nil, fmt.Errorf("%w: no status in response: %s", ErrUnparsableResponse, truncate(body))
	}
	return &TrackingInfo{Status: status, Detail: resp.Detail}, nil
}

func (g *genericCarrier) GetQuote(ctx context.Context, city string, weightKg float64) (*Quote, error) {
	body, err := g.post(ctx, g.endpoints.quote, map[string]any{"city": city, "weight": weightKg})
	if err != nil {
		return nil, err
	}
	return decodeQuoteResponse(g.cfg.Name, body)
}

func (g *genericCarrier) post(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", g.cfg.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	return g.do(req)
}

func (g *genericCarrier) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("X-API-Key", g.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
}

func (g *genericCarrier) do(req *http.Request) ([]byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &APIError{Carrier: g.cfg.Name, Message: err.Error()}
	}
	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", g.cfg.Name, readErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close %s response body: %w", g.cfg.Name, closeErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Carrier: g.cfg.Name, StatusCode: resp.StatusCode, Message: truncate(body)}
	}
	return body, nil
}

// decodeQuoteResponse reads the two spellings quote endpoints answer with.
func decodeQuoteResponse(name Name, body []byte) (*Quote, error) {
	var resp struct {
		Price          *float64 `json:"price"`
		Rate           *float64 `json:"rate"`
		EstimatedDays  *int     `json:"estimated_days"`
		EstimatedDays2 *int     `json:"estimatedDays"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnparsableResponse, truncate(body))
	}

	price := resp.Price
	if price == nil {
		price = resp.Rate
	}
	if price == nil {
		return nil, fmt.Errorf("%w: no price in %s quote", ErrUnparsableResponse, name)
	}

	quote := &Quote{PriceCents: int(*price*100 + 0.5)}
	if resp.EstimatedDays != nil {
		quote.EstimatedDays = *resp.EstimatedDays
	} else if resp.EstimatedDays2 != nil {
		quote.EstimatedDays = *resp.EstimatedDays2
	}
	return quote, nil
}

// flexString tolerates carriers returning identifiers as JSON numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	return fmt.Errorf("value %s is neither string nor number", trimmed)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
