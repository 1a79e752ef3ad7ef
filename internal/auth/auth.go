// Package auth provides admin authentication for the back office.
package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

// Manager issues and verifies the bearer tokens used by the admin API.
// There is a single admin identity configured through the environment.
type Manager struct {
	secret   []byte
	username string
	password string
}

func NewManager(secret, username, password string) (*Manager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("admin JWT secret must be at least 32 bytes")
	}
	if username == "" || password == "" {
		return nil, fmt.Errorf("admin username and password are required")
	}
	return &Manager{
		secret:   []byte(secret),
		username: username,
		password: password,
	}, nil
}

// Authenticate checks the credentials and returns a signed token.
func (m *Manager) Authenticate(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.password)) == 1
	if !userOK || !passOK {
		return "", fmt.Errorf("invalid credentials")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": username,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses and validates a token, returning the subject.
func (m *Manager) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}
	subject, _ := claims["sub"].(string)
	if subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return subject, nil
}

// Middleware rejects requests without a valid bearer token.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		if _, err := m.Verify(tokenString); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid or expired token"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
