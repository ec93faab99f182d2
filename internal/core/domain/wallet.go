package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaskedSecret is the redacted display form of a stored secret key.
// It is a fixed shape derived from no plaintext material, and it is
// never valid as input to a rotation.
const MaskedSecret = "sk_********"

// Wallet holds one tenant's payment-gateway credentials.
// The secret key and webhook secret are stored AES-256-GCM encrypted
// and never leave the service in plaintext after the request that
// carried them.
type Wallet struct {
	ID               uuid.UUID `json:"id"`
	TenantID         uuid.UUID `json:"tenant_id"`
	PublicKey        string    `json:"public_key"`
	SecretKeyEnc     string    `json:"-"` // Ciphertext, never expose
	WebhookSecretEnc *string   `json:"-"` // Ciphertext or nil (absent), never expose
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MaskedSecretKey returns the redacted display form of the secret key.
func (w *Wallet) MaskedSecretKey() string {
	return MaskedSecret
}

// HasWebhookSecret reports whether a webhook secret is configured.
// Presence is tracked as nil vs non-nil; an empty string is never stored.
func (w *Wallet) HasWebhookSecret() bool {
	return w.WebhookSecretEnc != nil
}

// IsMaskedSecret reports whether a candidate secret looks like a redacted
// display value round-tripped back as input. Masked forms contain
// asterisks, which never appear in real gateway keys.
func IsMaskedSecret(candidate string) bool {
	return strings.Contains(candidate, "*")
}
