package postgres

import (
	"context"
	"errors"
	"fmt"

	"tenant-wallet-service/internal/core/domain"
	"tenant-wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet. The unique constraint on tenant_id is the
// authoritative one-wallet-per-tenant guard; a conflicting insert is
// reported as created=false, not an error.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) (bool, error) {
	query := `INSERT INTO wallets (id, tenant_id, public_key, secret_key_enc, webhook_secret_enc, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tenant_id) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query,
		w.ID, w.TenantID, w.PublicKey, w.SecretKeyEnc,
		w.WebhookSecretEnc, w.IsActive, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert wallet: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByTenantID fetches a wallet by tenant (non-locking read).
func (r *WalletRepo) GetByTenantID(ctx context.Context, tenantID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, tenant_id, public_key, secret_key_enc, webhook_secret_enc, is_active, created_at, updated_at
		FROM wallets WHERE tenant_id = $1`

	w := &domain.Wallet{}
	err := r.pool.QueryRow(ctx, query, tenantID).Scan(
		&w.ID, &w.TenantID, &w.PublicKey, &w.SecretKeyEnc,
		&w.WebhookSecretEnc, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by tenant id: %w", err)
	}
	return w, nil
}

// GetByTenantIDForUpdate fetches a wallet by tenant with pessimistic
// locking. This MUST be called within a transaction.
func (r *WalletRepo) GetByTenantIDForUpdate(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, tenant_id, public_key, secret_key_enc, webhook_secret_enc, is_active, created_at, updated_at
		FROM wallets WHERE tenant_id = $1 FOR UPDATE`

	w := &domain.Wallet{}
	err := tx.QueryRow(ctx, query, tenantID).Scan(
		&w.ID, &w.TenantID, &w.PublicKey, &w.SecretKeyEnc,
		&w.WebhookSecretEnc, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for update: %w", err)
	}
	return w, nil
}

// UpdateCredentials replaces public key and webhook secret ciphertext
// within a transaction. The secret key column is never touched here.
func (r *WalletRepo) UpdateCredentials(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, publicKey string, webhookSecretEnc *string) error {
	query := `UPDATE wallets SET public_key = $1, webhook_secret_enc = $2, updated_at = NOW() WHERE tenant_id = $3`

	tag, err := tx.Exec(ctx, query, publicKey, webhookSecretEnc, tenantID)
	if err != nil {
		return fmt.Errorf("update wallet credentials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrStaleWallet
	}
	return nil
}

// UpdateSecretKey replaces only the secret key ciphertext within a
// transaction.
func (r *WalletRepo) UpdateSecretKey(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, secretKeyEnc string) error {
	query := `UPDATE wallets SET secret_key_enc = $1, updated_at = NOW() WHERE tenant_id = $2`

	tag, err := tx.Exec(ctx, query, secretKeyEnc, tenantID)
	if err != nil {
		return fmt.Errorf("update wallet secret key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrStaleWallet
	}
	return nil
}

// SetActive flips the activation flag within a transaction.
func (r *WalletRepo) SetActive(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, active bool) error {
	query := `UPDATE wallets SET is_active = $1, updated_at = NOW() WHERE tenant_id = $2`

	tag, err := tx.Exec(ctx, query, active, tenantID)
	if err != nil {
		return fmt.Errorf("set wallet active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrStaleWallet
	}
	return nil
}
