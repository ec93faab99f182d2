package service

import (
	"context"
	"fmt"

	"tenant-wallet-service/internal/core/domain"
	"tenant-wallet-service/internal/core/ports"
	"tenant-wallet-service/pkg/apperror"

	"github.com/google/uuid"
)

// DirectoryServiceImpl implements ports.DirectoryService. It is strictly
// read-only and redacts wallet fields by caller role: ciphertext is never
// returned to anyone, and the masked secret form is shown to admins only.
type DirectoryServiceImpl struct {
	tenantRepo ports.TenantRepository
	policy     ports.AccessPolicy
}

// NewDirectoryService creates a new DirectoryServiceImpl.
func NewDirectoryService(tenantRepo ports.TenantRepository, policy ports.AccessPolicy) *DirectoryServiceImpl {
	return &DirectoryServiceImpl{tenantRepo: tenantRepo, policy: policy}
}

// ListTenants returns one row per organization tenant, left-joined
// against wallet state.
func (s *DirectoryServiceImpl) ListTenants(ctx context.Context, caller ports.Principal, searchText string) ([]ports.TenantWalletStatus, error) {
	if err := s.policy.Authorize(caller, ports.OpListTenants, uuid.Nil); err != nil {
		return nil, err
	}

	rows, err := s.tenantRepo.ListWithWalletStatus(ctx, searchText)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list tenants: %w", err))
	}

	result := make([]ports.TenantWalletStatus, 0, len(rows))
	for _, row := range rows {
		status := ports.TenantWalletStatus{Tenant: row.Tenant}
		if row.Wallet != nil {
			status.HasWallet = true
			status.PublicKey = row.Wallet.PublicKey
			status.HasWebhook = row.Wallet.HasWebhookSecret()
			status.IsActive = row.Wallet.IsActive
			createdAt := row.Wallet.CreatedAt
			updatedAt := row.Wallet.UpdatedAt
			status.WalletCreatedAt = &createdAt
			status.WalletUpdatedAt = &updatedAt
			if caller.Role == domain.RoleAdmin {
				status.MaskedSecretKey = row.Wallet.MaskedSecretKey()
			}
		}
		result = append(result, status)
	}
	return result, nil
}
