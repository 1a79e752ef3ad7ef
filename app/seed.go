package app

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tajerapp/tajer/internal/db"
)

// seedSettings loads default settings from a YAML file on first boot.
// Existing keys are never overwritten, so the file is safe to keep mounted
// across restarts while the admin edits settings through the API.
func seedSettings(ctx context.Context, store *db.SettingsStore, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read settings seed file: %w", err)
	}

	var seed struct {
		Settings map[string]string `yaml:"settings"`
	}
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("failed to parse settings seed file: %w", err)
	}

	for key, value := range seed.Settings {
		if err := store.SetDefault(ctx, key, value); err != nil {
			return fmt.Errorf("failed to seed setting %q: %w", key, err)
		}
	}
	return nil
}
