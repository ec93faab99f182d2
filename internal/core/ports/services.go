package ports

import (
	"context"
	"time"

	"tenant-wallet-service/internal/core/domain"

	"github.com/google/uuid"
)

// EncryptionService handles AES-256-GCM encryption/decryption of stored
// secrets.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations for administrative sessions.
type TokenService interface {
	Generate(adminID uuid.UUID, username string, role domain.AdminRole) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AdminID  uuid.UUID
	Username string
	Role     domain.AdminRole
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	ID       uuid.UUID
	Username string
	Role     domain.AdminRole
}

// Operation identifies a wallet subsystem operation for authorization.
type Operation string

const (
	OpListTenants     Operation = "LIST_TENANTS"
	OpCreateWallet    Operation = "CREATE_WALLET"
	OpUpdateWallet    Operation = "UPDATE_WALLET"
	OpRotateSecret    Operation = "ROTATE_SECRET"
	OpSetWalletActive Operation = "SET_WALLET_ACTIVE"
)

// AccessPolicy authorizes operations against the caller's role. The gate
// decides from server-side state only; it never consults caller-supplied
// metadata about the target tenant.
type AccessPolicy interface {
	Authorize(caller Principal, op Operation, targetTenantID uuid.UUID) error
}

// --- Service Ports (Business Logic) ---

// CreateWalletRequest holds validated input for wallet creation.
type CreateWalletRequest struct {
	TenantID      uuid.UUID
	PublicKey     string
	SecretKey     string
	WebhookSecret *string // nil = no webhook secret
	ClientIP      string
}

// UpdateWalletRequest holds validated input for a wallet update.
// WebhookSecret follows explicit-intent semantics: nil leaves the field
// unchanged, a non-empty value replaces it, and clearing requires
// ClearWebhookSecret. SecretKey is a trap field: any value is rejected to
// force the dedicated rotation path.
type UpdateWalletRequest struct {
	TenantID           uuid.UUID
	PublicKey          *string
	WebhookSecret      *string
	ClearWebhookSecret bool
	SecretKey          *string
	ClientIP           string
}

// SetActiveRequest holds validated input for the activation toggle.
type SetActiveRequest struct {
	TenantID  uuid.UUID
	Active    bool
	Confirmed bool // required for ACTIVE -> INACTIVE
	ClientIP  string
}

// WalletLifecycleService owns the wallet state machine and its invariants.
type WalletLifecycleService interface {
	Create(ctx context.Context, caller Principal, req CreateWalletRequest) (*domain.Wallet, error)
	Update(ctx context.Context, caller Principal, req UpdateWalletRequest) (*domain.Wallet, error)
	RotateSecret(ctx context.Context, caller Principal, tenantID uuid.UUID, newSecretKey string, clientIP string) (*domain.Wallet, error)
	SetActive(ctx context.Context, caller Principal, req SetActiveRequest) (*domain.Wallet, error)
}

// TenantWalletStatus is one redacted row of the directory listing.
// Ciphertext never appears here; the secret key is shown masked and the
// webhook secret as bare presence.
type TenantWalletStatus struct {
	Tenant          domain.Tenant
	HasWallet       bool
	PublicKey       string
	MaskedSecretKey string
	HasWebhook      bool
	IsActive        bool
	WalletCreatedAt *time.Time
	WalletUpdatedAt *time.Time
}

// DirectoryService is the read-only tenant directory view.
type DirectoryService interface {
	ListTenants(ctx context.Context, caller Principal, searchText string) ([]TenantWalletStatus, error)
}

// AuthService authenticates administrative principals.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
	// Bootstrap ensures the configured admin exists. No-op when username
	// is empty.
	Bootstrap(ctx context.Context, username, password string) error
}

// AuditService records audit trail entries.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
