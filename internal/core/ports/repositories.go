package ports

import (
	"context"
	"errors"

	"tenant-wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrStaleWallet is returned by wallet write methods when the target row
// vanished between the lock and the write. Services surface it as a
// conflict.
var ErrStaleWallet = errors.New("wallet row changed concurrently")

// TenantRepository defines read-only access to the tenant directory.
type TenantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	// ListWithWalletStatus returns one row per organization tenant,
	// left-joined against wallets. searchText filters case-insensitively
	// on display name or contact email; empty returns all. Ordering is
	// stable across calls.
	ListWithWalletStatus(ctx context.Context, searchText string) ([]domain.TenantWalletRow, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for
// pessimistic locking.
type WalletRepository interface {
	// Create inserts a wallet. It returns false without error when a
	// wallet already exists for the tenant (atomic uniqueness guard).
	Create(ctx context.Context, w *domain.Wallet) (bool, error)
	GetByTenantID(ctx context.Context, tenantID uuid.UUID) (*domain.Wallet, error)
	GetByTenantIDForUpdate(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID) (*domain.Wallet, error)
	// UpdateCredentials replaces the public key and webhook secret
	// ciphertext (nil clears it). Never touches the secret key.
	UpdateCredentials(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, publicKey string, webhookSecretEnc *string) error
	// UpdateSecretKey replaces only the secret key ciphertext.
	UpdateSecretKey(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, secretKeyEnc string) error
	SetActive(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, active bool) error
}

// AdminRepository defines persistence for administrative principals.
type AdminRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.Admin, error)
	// Create inserts an admin, ignoring duplicates (bootstrap path).
	Create(ctx context.Context, admin *domain.Admin) error
}

// AuditRepository defines persistence for audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
