package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tenant-wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TenantRepo implements ports.TenantRepository. The tenants table is
// owned by the directory; this repo only ever reads it.
type TenantRepo struct {
	pool Pool
}

// NewTenantRepo creates a new TenantRepo.
func NewTenantRepo(pool Pool) *TenantRepo {
	return &TenantRepo{pool: pool}
}

// GetByID fetches a tenant by its UUID.
func (r *TenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `SELECT id, display_name, contact_email, account_type, created_at, updated_at
		FROM tenants WHERE id = $1`

	t := &domain.Tenant{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.DisplayName, &t.ContactEmail, &t.AccountType,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tenant by id: %w", err)
	}
	return t, nil
}

// ListWithWalletStatus returns every organization tenant left-joined
// against its wallet. Ordering by display name then id keeps repeated
// calls stable.
func (r *TenantRepo) ListWithWalletStatus(ctx context.Context, searchText string) ([]domain.TenantWalletRow, error) {
	query := `SELECT t.id, t.display_name, t.contact_email, t.account_type, t.created_at, t.updated_at,
			w.id, w.public_key, w.secret_key_enc, w.webhook_secret_enc, w.is_active, w.created_at, w.updated_at
		FROM tenants t
		LEFT JOIN wallets w ON w.tenant_id = t.id
		WHERE t.account_type = $1
		  AND ($2 = '' OR t.display_name ILIKE '%' || $2 || '%' OR t.contact_email ILIKE '%' || $2 || '%')
		ORDER BY t.display_name, t.id`

	rows, err := r.pool.Query(ctx, query, domain.AccountTypeOrganization, searchText)
	if err != nil {
		return nil, fmt.Errorf("list tenants with wallet status: %w", err)
	}
	defer rows.Close()

	var result []domain.TenantWalletRow
	for rows.Next() {
		var row domain.TenantWalletRow
		var (
			walletID         *uuid.UUID
			publicKey        *string
			secretKeyEnc     *string
			webhookSecretEnc *string
			isActive         *bool
			walletCreatedAt  *time.Time
			walletUpdatedAt  *time.Time
		)
		err := rows.Scan(
			&row.Tenant.ID, &row.Tenant.DisplayName, &row.Tenant.ContactEmail,
			&row.Tenant.AccountType, &row.Tenant.CreatedAt, &row.Tenant.UpdatedAt,
			&walletID, &publicKey, &secretKeyEnc, &webhookSecretEnc,
			&isActive, &walletCreatedAt, &walletUpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tenant row: %w", err)
		}
		if walletID != nil {
			row.Wallet = &domain.Wallet{
				ID:               *walletID,
				TenantID:         row.Tenant.ID,
				PublicKey:        *publicKey,
				SecretKeyEnc:     *secretKeyEnc,
				WebhookSecretEnc: webhookSecretEnc,
				IsActive:         *isActive,
				CreatedAt:        *walletCreatedAt,
				UpdatedAt:        *walletUpdatedAt,
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenant rows: %w", err)
	}
	return result, nil
}
