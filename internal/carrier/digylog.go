package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tajerapp/tajer/internal/models"
)

// digylogCarrier talks to the DIGYLOG API. DIGYLOG wraps orders in a batch
// envelope even for single-order submission and answers with an array,
// a bare object, or an error object depending on the failure mode.
type digylogCarrier struct {
	cfg    Config
	client *http.Client
}

func newDigylog(cfg Config, client *http.Client) ShipmentCarrier {
	return &digylogCarrier{cfg: cfg, client: client}
}

func (d *digylogCarrier) Name() Name { return Digylog }

type digylogEnvelope struct {
	Mode           string         `json:"mode"`
	Network        string         `json:"network"`
	Store          string         `json:"store"`
	Status         int            `json:"status"`
	CheckDuplicate int            `json:"checkDuplicate"`
	Orders         []digylogOrder `json:"orders"`
}

type digylogOrder struct {
	Num     string  `json:"num"`
	Type    string  `json:"type"`
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Address string  `json:"address"`
	City    string  `json:"city"`
	Price   float64 `json:"price"`
	Port    int     `json:"port"`
	Note    string  `json:"note"`
	Refs    string  `json:"refs"`
}

func (d *digylogCarrier) CreateShipment(ctx context.Context, order *models.Order) (*CreateResult, error) {
	refs := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		refs = append(refs, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
	}

	// status=1 sends immediately, port=1 bills the delivery cost to the
	// recipient (cash on delivery).
	envelope := digylogEnvelope{
		Mode:           "pickup",
		Network:        d.cfg.Network,
		Store:          d.cfg.Store,
		Status:         1,
		CheckDuplicate: 1,
		Orders: []digylogOrder{{
			Num:     fmt.Sprintf("CMD-%d", order.ID),
			Type:    "livraison",
			Name:    order.CustomerName,
			Phone:   order.CustomerPhone,
			Address: order.Address,
			City:    order.City,
			Price:   codAmountDH(order),
			Port:    1,
			Note:    order.Notes,
			Refs:    strings.Join(refs, ", "),
		}},
	}

	body, err := d.post(ctx, "/orders", envelope)
	if err != nil {
		return nil, err
	}

	tracking, bl, err := decodeDigylogCreateResponse(body)
	if err != nil {
		return nil, err
	}

	result := &CreateResult{TrackingNumber: tracking}
	if bl != "" {
		result.LabelURL = fmt.Sprintf("%s/bl/%s/pdf", d.cfg.APIURL, bl)
	}
	return result, nil
}

func (d *digylogCarrier) TrackShipment(ctx context.Context, trackingNumber string) (*TrackingInfo, error) {
	endpoint := fmt.Sprintf("%s/order/%s/infos", d.cfg.APIURL, url.PathEscape(trackingNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	d.setHeaders(req)

	body, err := d.do(req)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Status    string `json:"status"`
		Situation string `json:"situation"`
		Comment   string `json:"comment"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnparsableResponse, truncate(body))
	}
	status := payload.Status
	if status == "" {
		status = payload.Situation
	}
	return &TrackingInfo{Status: status, Detail: payload.Comment}, nil
}

func (d *digylogCarrier) GetQuote(ctx context.Context, city string, weightKg float64) (*Quote, error) {
	body, err := d.post(ctx, "/quote", map[string]any{"city": city, "weight": weightKg})
	if err != nil {
		return nil, err
	}
	return decodeQuoteResponse(Digylog, body)
}

func (d *digylogCarrier) post(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode digylog payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.APIURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	d.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	return d.do(req)
}

func (d *digylogCarrier) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	// DIGYLOG validates the calling store through the Referer header.
	req.Header.Set("Referer", d.cfg.APIURL)
	req.Header.Set("Accept", "application/json")
}

func (d *digylogCarrier) do(req *http.Request) ([]byte, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &APIError{Carrier: Digylog, Message: err.Error()}
	}
	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("failed to read digylog response: %w", readErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close digylog response body: %w", closeErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Carrier: Digylog, StatusCode: resp.StatusCode, Message: truncate(body)}
	}
	return body, nil
}

// decodeDigylogCreateResponse handles the three shapes DIGYLOG answers
// with: an array of results, a single object with a tracking field, or an
// object carrying an error field.
func decodeDigylogCreateResponse(body []byte) (tracking, bl string, err error) {
	type entry struct {
		Tracking string     `json:"tracking"`
		BL       flexString `json:"bl"`
		Error    string     `json:"error"`
	}

	var list []entry
	if jsonErr := json.Unmarshal(body, &list); jsonErr == nil {
		if len(list) == 0 {
			return "", "", fmt.Errorf("%w: empty digylog result array", ErrUnparsableResponse)
		}
		first := list[0]
		if first.Error != "" {
			return "", "", &APIError{Carrier: Digylog, Message: first.Error}
		}
		if first.Tracking == "" {
			return "", "", fmt.Errorf("%w: digylog result has no tracking", ErrUnparsableResponse)
		}
		return first.Tracking, string(first.BL), nil
	}

	var single entry
	if jsonErr := json.Unmarshal(body, &single); jsonErr == nil {
		if single.Error != "" {
			return "", "", &APIError{Carrier: Digylog, Message: single.Error}
		}
		if single.Tracking != "" {
			return single.Tracking, string(single.BL), nil
		}
	}

	return "", "", fmt.Errorf("%w: %s", ErrUnparsableResponse, truncate(body))
}

func truncate(body []byte) string {
	const maxLen = 256
	text := strings.TrimSpace(string(body))
	if len(text) > maxLen {
		return text[:maxLen]
	}
	return text
}
