package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tenant-wallet-service/internal/core/domain"
	"tenant-wallet-service/internal/core/ports"
	"tenant-wallet-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Rotation refuses anything shorter; real gateway secret keys are long
// opaque strings, and a short value is almost certainly a typo or a
// truncated paste.
const minRotationSecretLen = 16

// WalletServiceImpl implements ports.WalletLifecycleService.
//
// Per-tenant wallet state machine:
//
//	NO_WALLET --Create--> ACTIVE
//	ACTIVE --SetActive(false, confirmed)--> INACTIVE
//	INACTIVE --SetActive(true)--> ACTIVE
//	ACTIVE/INACTIVE --Update/RotateSecret--> same state
//
// INACTIVE retains all stored credentials; only NO_WALLET requires full
// re-creation.
type WalletServiceImpl struct {
	tenantRepo ports.TenantRepository
	walletRepo ports.WalletRepository
	encSvc     ports.EncryptionService
	policy     ports.AccessPolicy
	transactor ports.DBTransactor
	auditSvc   ports.AuditService
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	tenantRepo ports.TenantRepository,
	walletRepo ports.WalletRepository,
	encSvc ports.EncryptionService,
	policy ports.AccessPolicy,
	transactor ports.DBTransactor,
	auditSvc ports.AuditService,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		tenantRepo: tenantRepo,
		walletRepo: walletRepo,
		encSvc:     encSvc,
		policy:     policy,
		transactor: transactor,
		auditSvc:   auditSvc,
		log:        log,
	}
}

// Create provisions a wallet for an organization tenant.
func (s *WalletServiceImpl) Create(ctx context.Context, caller ports.Principal, req ports.CreateWalletRequest) (*domain.Wallet, error) {
	if err := s.policy.Authorize(caller, ports.OpCreateWallet, req.TenantID); err != nil {
		return nil, err
	}

	if req.PublicKey == "" {
		return nil, apperror.Validation("public_key is required")
	}
	if req.SecretKey == "" {
		return nil, apperror.Validation("secret_key is required")
	}
	if domain.IsMaskedSecret(req.SecretKey) {
		return nil, apperror.Validation("secret_key looks like a masked display value")
	}
	if req.WebhookSecret != nil && *req.WebhookSecret == "" {
		return nil, apperror.Validation("webhook_secret must be non-empty or omitted")
	}

	tenant, err := s.tenantRepo.GetByID(ctx, req.TenantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch tenant: %w", err))
	}
	if tenant == nil {
		return nil, apperror.ErrNotFound("tenant")
	}
	// Eligibility is re-derived from the stored directory record, never
	// from anything the client asserted about the tenant.
	if !tenant.CanOwnWallet() {
		return nil, apperror.ErrInvalidTenantType()
	}

	existing, err := s.walletRepo.GetByTenantID(ctx, req.TenantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check existing wallet: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrWalletExists()
	}

	secretEnc, err := s.encSvc.Encrypt(req.SecretKey)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt secret key: %w", err))
	}
	var webhookEnc *string
	if req.WebhookSecret != nil {
		enc, err := s.encSvc.Encrypt(*req.WebhookSecret)
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt webhook secret: %w", err))
		}
		webhookEnc = &enc
	}

	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:               uuid.New(),
		TenantID:         req.TenantID,
		PublicKey:        req.PublicKey,
		SecretKeyEnc:     secretEnc,
		WebhookSecretEnc: webhookEnc,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := s.walletRepo.Create(ctx, wallet)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("insert wallet: %w", err))
	}
	if !created {
		// Lost a creation race; the uniqueness constraint is the
		// authoritative guard.
		return nil, apperror.ErrWalletExists()
	}

	s.audit(ctx, caller, domain.AuditActionWalletCreate, req.TenantID, req.ClientIP, map[string]any{
		"webhook_secret_set": webhookEnc != nil,
	})
	return wallet, nil
}

// Update edits the public key and/or webhook secret of an existing
// wallet. The secret key is never accepted here.
func (s *WalletServiceImpl) Update(ctx context.Context, caller ports.Principal, req ports.UpdateWalletRequest) (*domain.Wallet, error) {
	if err := s.policy.Authorize(caller, ports.OpUpdateWallet, req.TenantID); err != nil {
		return nil, err
	}

	if req.SecretKey != nil {
		return nil, apperror.Validation("secret_key cannot be changed here; use the rotation endpoint")
	}
	if req.PublicKey != nil && *req.PublicKey == "" {
		return nil, apperror.Validation("public_key cannot be empty")
	}
	// Tri-state webhook contract: an empty string is neither a value nor
	// a clear signal.
	if req.WebhookSecret != nil && *req.WebhookSecret == "" && !req.ClearWebhookSecret {
		return nil, apperror.Validation("webhook_secret cannot be empty; set clear_webhook_secret to remove it")
	}
	if req.WebhookSecret != nil && *req.WebhookSecret != "" && req.ClearWebhookSecret {
		return nil, apperror.Validation("webhook_secret and clear_webhook_secret are mutually exclusive")
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByTenantIDForUpdate(ctx, tx, req.TenantID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	var changedFields []string

	publicKey := wallet.PublicKey
	if req.PublicKey != nil && *req.PublicKey != wallet.PublicKey {
		publicKey = *req.PublicKey
		changedFields = append(changedFields, "public_key")
	}

	webhookEnc := wallet.WebhookSecretEnc
	switch {
	case req.ClearWebhookSecret:
		if wallet.WebhookSecretEnc != nil {
			webhookEnc = nil
			changedFields = append(changedFields, "webhook_secret")
		}
	case req.WebhookSecret != nil:
		enc, encErr := s.encSvc.Encrypt(*req.WebhookSecret)
		if encErr != nil {
			return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt webhook secret: %w", encErr))
		}
		webhookEnc = &enc
		changedFields = append(changedFields, "webhook_secret")
	}

	if len(changedFields) == 0 {
		return nil, apperror.ErrNoChanges()
	}

	if err := s.walletRepo.UpdateCredentials(ctx, tx, req.TenantID, publicKey, webhookEnc); err != nil {
		if errors.Is(err, ports.ErrStaleWallet) {
			return nil, apperror.ErrConflict(err)
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("update wallet: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit: %w", err))
	}

	wallet.PublicKey = publicKey
	wallet.WebhookSecretEnc = webhookEnc
	wallet.UpdatedAt = time.Now().UTC()

	s.audit(ctx, caller, domain.AuditActionWalletUpdate, req.TenantID, req.ClientIP, map[string]any{
		"fields": changedFields,
	})
	return wallet, nil
}

// RotateSecret replaces the stored secret key ciphertext wholesale.
// Nothing else on the wallet changes.
func (s *WalletServiceImpl) RotateSecret(ctx context.Context, caller ports.Principal, tenantID uuid.UUID, newSecretKey string, clientIP string) (*domain.Wallet, error) {
	if err := s.policy.Authorize(caller, ports.OpRotateSecret, tenantID); err != nil {
		return nil, err
	}

	if newSecretKey == "" {
		return nil, apperror.Validation("secret_key is required")
	}
	// Guard against the redacted display form being pasted back as the
	// new key.
	if domain.IsMaskedSecret(newSecretKey) {
		return nil, apperror.Validation("secret_key looks like a masked display value")
	}
	if len(newSecretKey) < minRotationSecretLen {
		return nil, apperror.Validation(fmt.Sprintf("secret_key must be at least %d characters", minRotationSecretLen))
	}

	secretEnc, err := s.encSvc.Encrypt(newSecretKey)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt secret key: %w", err))
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByTenantIDForUpdate(ctx, tx, tenantID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	if err := s.walletRepo.UpdateSecretKey(ctx, tx, tenantID, secretEnc); err != nil {
		if errors.Is(err, ports.ErrStaleWallet) {
			return nil, apperror.ErrConflict(err)
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("rotate secret: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit: %w", err))
	}

	wallet.SecretKeyEnc = secretEnc
	wallet.UpdatedAt = time.Now().UTC()

	s.audit(ctx, caller, domain.AuditActionSecretRotate, tenantID, clientIP, nil)
	return wallet, nil
}

// SetActive toggles the activation flag. Idempotent in both directions;
// deactivating an active wallet additionally requires Confirmed.
func (s *WalletServiceImpl) SetActive(ctx context.Context, caller ports.Principal, req ports.SetActiveRequest) (*domain.Wallet, error) {
	if err := s.policy.Authorize(caller, ports.OpSetWalletActive, req.TenantID); err != nil {
		return nil, err
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByTenantIDForUpdate(ctx, tx, req.TenantID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	if wallet.IsActive == req.Active {
		// Idempotent no-op; nothing written, current state returned.
		return wallet, nil
	}
	if !req.Active && !req.Confirmed {
		return nil, apperror.ErrConfirmationRequired()
	}

	if err := s.walletRepo.SetActive(ctx, tx, req.TenantID, req.Active); err != nil {
		if errors.Is(err, ports.ErrStaleWallet) {
			return nil, apperror.ErrConflict(err)
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("set active: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit: %w", err))
	}

	wallet.IsActive = req.Active
	wallet.UpdatedAt = time.Now().UTC()

	action := domain.AuditActionWalletActivate
	if !req.Active {
		action = domain.AuditActionWalletDeactivate
	}
	s.audit(ctx, caller, action, req.TenantID, req.ClientIP, nil)
	return wallet, nil
}

func (s *WalletServiceImpl) audit(ctx context.Context, caller ports.Principal, action domain.AuditAction, tenantID uuid.UUID, clientIP string, details map[string]any) {
	if s.auditSvc == nil {
		return
	}
	var detailsJSON string
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			detailsJSON = string(b)
		}
	}
	actorID := caller.ID
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		ActorID:      &actorID,
		Action:       action,
		ResourceType: "wallet",
		ResourceID:   tenantID.String(),
		Details:      detailsJSON,
		IPAddress:    clientIP,
		CreatedAt:    time.Now().UTC(),
	})
}
