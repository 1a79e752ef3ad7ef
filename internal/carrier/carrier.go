// Package carrier maps the uniform shipment contract onto each delivery
// company's wire format and normalizes their responses back.
package carrier

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tajerapp/tajer/internal/models"
)

type Name string

const (
	Digylog  Name = "digylog"
	Ozon     Name = "ozon"
	Cathedis Name = "cathedis"
	Sendit   Name = "sendit"
	Internal Name = "internal"
)

// enumerationOrder is the fixed fallback order tried after the configured
// default carrier. There is no load-balancing or health-based routing.
var enumerationOrder = []Name{Digylog, Ozon, Cathedis, Sendit}

// DisplayName is the value persisted on orders and shipping labels.
func (n Name) DisplayName() string {
	switch n {
	case Digylog:
		return "DIGYLOG"
	case Ozon:
		return "OZON"
	case Cathedis:
		return "CATHEDIS"
	case Sendit:
		return "SENDIT"
	case Internal:
		return "Internal"
	}
	return string(n)
}

var (
	ErrNotConfigured      = errors.New("carrier is not configured")
	ErrUnknownCarrier     = errors.New("unknown carrier")
	ErrUnparsableResponse = errors.New("unparsable carrier response")
)

// APIError is a carrier-reported or transport-level failure. It never
// crosses the dispatch boundary raw; the orchestrator folds it into a
// discriminated result.
type APIError struct {
	Carrier    Name
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Carrier.DisplayName(), e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Carrier.DisplayName(), e.Message)
}

// CreateResult is the normalized outcome of a shipment submission. LabelURL
// and PDFContent are mutually exclusive in practice.
type CreateResult struct {
	TrackingNumber string
	LabelURL       string
	PDFContent     []byte
}

// TrackingInfo is the carrier-native status payload, normalized enough for
// the status mapping table.
type TrackingInfo struct {
	Status string
	Detail string
}

type Quote struct {
	PriceCents    int
	EstimatedDays int
}

// ShipmentCarrier is the uniform capability every carrier variant
// implements: create, track, quote.
type ShipmentCarrier interface {
	Name() Name
	CreateShipment(ctx context.Context, order *models.Order) (*CreateResult, error)
	TrackShipment(ctx context.Context, trackingNumber string) (*TrackingInfo, error)
	GetQuote(ctx context.Context, city string, weightKg float64) (*Quote, error)
}

type factory func(cfg Config, client *http.Client) ShipmentCarrier

// registry keys the closed set of carrier variants by identifier, so
// carrier-specific knowledge stays out of the call sites.
var registry = map[Name]factory{
	Digylog:  newDigylog,
	Ozon:     newGeneric,
	Cathedis: newGeneric,
	Sendit:   newGeneric,
}

// New builds the adapter for a resolved carrier config.
func New(cfg Config, client *http.Client) (ShipmentCarrier, error) {
	if cfg.Name == Internal {
		return NewInternalCarrier(), nil
	}
	build, ok := registry[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCarrier, cfg.Name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return build(cfg, client), nil
}

// codAmountDH converts the cash-on-delivery amount to dirhams. Carriers
// collect the item total plus the delivery cost from the recipient.
func codAmountDH(order *models.Order) float64 {
	return float64(order.TotalCents+order.DeliveryCents) / 100
}
