package service

import (
	"context"
	"fmt"
	"time"

	"tenant-wallet-service/internal/core/domain"
	"tenant-wallet-service/internal/core/ports"
	"tenant-wallet-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService: the thin boundary that
// turns an admin username/password into the authenticated principal the
// rest of the subsystem consumes. There is no self-registration; admins
// are provisioned via bootstrap config or out of band.
type AuthServiceImpl struct {
	adminRepo ports.AdminRepository
	hashSvc   ports.HashService
	tokenSvc  ports.TokenService
	auditSvc  ports.AuditService
	log       zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	adminRepo ports.AdminRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	auditSvc ports.AuditService,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		adminRepo: adminRepo,
		hashSvc:   hashSvc,
		tokenSvc:  tokenSvc,
		auditSvc:  auditSvc,
		log:       log,
	}
}

// Login verifies credentials and issues a session token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	admin, err := s.adminRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("fetch admin: %w", err))
	}
	if admin == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	ok, err := s.hashSvc.Verify(password, admin.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiresAt, err := s.tokenSvc.Generate(admin.ID, admin.Username, admin.Role)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	if s.auditSvc != nil {
		actorID := admin.ID
		s.auditSvc.Log(ctx, &domain.AuditLog{
			ID:           uuid.New(),
			ActorID:      &actorID,
			Action:       domain.AuditActionLogin,
			ResourceType: "admin",
			ResourceID:   admin.ID.String(),
			CreatedAt:    time.Now().UTC(),
		})
	}

	return token, expiresAt, nil
}

// Bootstrap ensures the configured administrator exists. A blank
// username disables bootstrapping.
func (s *AuthServiceImpl) Bootstrap(ctx context.Context, username, password string) error {
	if username == "" {
		return nil
	}
	if password == "" {
		return fmt.Errorf("bootstrap admin %q has no password configured", username)
	}

	existing, err := s.adminRepo.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("check bootstrap admin: %w", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := s.hashSvc.Hash(password)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}

	admin := &domain.Admin{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	s.log.Info().Str("username", username).Msg("bootstrap admin created")
	return nil
}
