package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tajerapp/tajer/internal/crypto"
)

// SettingsStore holds the string key-value settings bag (carrier config,
// delivery cost, sheet id). API keys are encrypted at rest.
type SettingsStore struct {
	pool   *pgxpool.Pool
	crypto crypto.Encryptor
}

func NewSettingsStore(pool *pgxpool.Pool, encryptor crypto.Encryptor) (*SettingsStore, error) {
	if encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}
	return &SettingsStore{pool: pool, crypto: encryptor}, nil
}

// Get returns the value for a key, or "" when the key is absent. Carrier
// config resolution treats absent keys as unconfigured, not as errors.
func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if isSecretKey(key) && value != "" {
		decrypted, decryptErr := s.crypto.Decrypt(value)
		if decryptErr != nil {
			return "", fmt.Errorf("failed to decrypt setting %s: %w", key, decryptErr)
		}
		return decrypted, nil
	}
	return value, nil
}

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	stored := value
	if isSecretKey(key) && value != "" {
		encrypted, err := s.crypto.Encrypt(value)
		if err != nil {
			return fmt.Errorf("failed to encrypt setting %s: %w", key, err)
		}
		stored = encrypted
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, stored)
	return err
}

// SetDefault writes a value only if the key does not exist yet, used for
// seeding defaults at boot.
func (s *SettingsStore) SetDefault(ctx context.Context, key, value string) error {
	stored := value
	if isSecretKey(key) && value != "" {
		encrypted, err := s.crypto.Encrypt(value)
		if err != nil {
			return fmt.Errorf("failed to encrypt setting %s: %w", key, err)
		}
		stored = encrypted
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING`,
		key, stored)
	return err
}

// All returns every setting with secret values redacted, for the admin
// settings screen.
func (s *SettingsStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		if isSecretKey(key) && value != "" {
			value = "••••••••"
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "_api_key")
}
