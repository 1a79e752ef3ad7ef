package carrier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Config is the typed per-carrier configuration assembled from the settings
// store. Missing required fields are rejected explicitly instead of being
// silently substituted with empty strings.
type Config struct {
	Name      Name
	Enabled   bool
	APIURL    string
	APIKey    string
	AccountID string

	// DIGYLOG requires per-seller routing configuration.
	Store   string
	Network string
}

func (c Config) Validate() error {
	if !c.Enabled {
		return fmt.Errorf("%w: %s is disabled", ErrNotConfigured, c.Name)
	}
	if c.APIURL == "" || c.APIKey == "" {
		return fmt.Errorf("%w: %s is missing api_url or api_key", ErrNotConfigured, c.Name)
	}
	if c.Name == Digylog && (c.Store == "" || c.Network == "") {
		return fmt.Errorf("%w: digylog requires store and network", ErrNotConfigured)
	}
	return nil
}

// Ready reports whether the carrier can accept shipments.
func (c Config) Ready() bool {
	return c.Validate() == nil
}

// SettingsReader is the read-only slice of the settings store the carrier
// layer depends on. It never writes settings.
type SettingsReader interface {
	Get(ctx context.Context, key string) (string, error)
}

// Resolver assembles typed carrier configs from key-value settings
// (`carrier_<name>_enabled`, `_api_url`, `_api_key`, `_account_id`, plus
// DIGYLOG's store/network) and selects the active carrier.
type Resolver struct {
	settings SettingsReader
	client   *http.Client
}

func NewResolver(settings SettingsReader, client *http.Client) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{settings: settings, client: client}
}

func (r *Resolver) Resolve(ctx context.Context, name Name) (Config, error) {
	cfg := Config{Name: name}
	if name == Internal {
		cfg.Enabled = true
		return cfg, nil
	}

	prefix := "carrier_" + string(name)
	enabled, err := r.settings.Get(ctx, prefix+"_enabled")
	if err != nil {
		return cfg, fmt.Errorf("failed to read %s settings: %w", name, err)
	}
	cfg.Enabled = strings.EqualFold(strings.TrimSpace(enabled), "true")

	cfg.APIURL = strings.TrimRight(r.lookup(ctx, prefix+"_api_url"), "/")
	cfg.APIKey = r.lookup(ctx, prefix+"_api_key")
	cfg.AccountID = r.lookup(ctx, prefix+"_account_id")
	if name == Digylog {
		cfg.Store = r.lookup(ctx, prefix+"_store")
		cfg.Network = r.lookup(ctx, prefix+"_network")
	}
	return cfg, nil
}

// Active returns the adapter for the first enabled and configured carrier:
// the configured default first, then the remaining carriers in fixed
// enumeration order. With nothing configured it falls back to the internal
// mock carrier so the rest of the pipeline never special-cases "no carrier".
func (r *Resolver) Active(ctx context.Context) (ShipmentCarrier, error) {
	for _, name := range r.selectionOrder(ctx) {
		cfg, err := r.Resolve(ctx, name)
		if err != nil || !cfg.Ready() {
			continue
		}
		return New(cfg, r.client)
	}
	return NewInternalCarrier(), nil
}

// ForName resolves and builds a specific carrier, used by the status sync
// which must poll the carrier recorded on each label.
func (r *Resolver) ForName(ctx context.Context, name Name) (ShipmentCarrier, error) {
	cfg, err := r.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	return New(cfg, r.client)
}

func (r *Resolver) selectionOrder(ctx context.Context) []Name {
	order := make([]Name, 0, len(enumerationOrder)+1)
	if preferred := NameFromString(r.lookup(ctx, "default_carrier")); preferred != "" && preferred != Internal {
		order = append(order, preferred)
	}
	for _, name := range enumerationOrder {
		if len(order) > 0 && name == order[0] {
			continue
		}
		order = append(order, name)
	}
	return order
}

func (r *Resolver) lookup(ctx context.Context, key string) string {
	value, err := r.settings.Get(ctx, key)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

// NameFromString normalizes a stored carrier name, accepting both the
// identifier and the display spelling. Unknown names map to "".
func NameFromString(value string) Name {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "digylog":
		return Digylog
	case "ozon":
		return Ozon
	case "cathedis":
		return Cathedis
	case "sendit":
		return Sendit
	case "internal":
		return Internal
	default:
		return ""
	}
}
