package service

import (
	"tenant-wallet-service/internal/core/domain"
	"tenant-wallet-service/internal/core/ports"
	"tenant-wallet-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PolicyGate implements ports.AccessPolicy. It is the single decision
// point for every wallet operation: mutating operations require the
// ADMIN role, reads require any authenticated principal. The gate judges
// the caller only; tenant eligibility is re-derived from stored state by
// the lifecycle service, so nothing a client asserts about a tenant can
// widen access.
type PolicyGate struct {
	log zerolog.Logger
}

// NewPolicyGate creates a new PolicyGate.
func NewPolicyGate(log zerolog.Logger) *PolicyGate {
	return &PolicyGate{log: log}
}

// Authorize returns nil if the caller may perform op on the target
// tenant's wallet. Denials carry no information about whether a wallet
// exists for the target.
func (g *PolicyGate) Authorize(caller ports.Principal, op ports.Operation, targetTenantID uuid.UUID) error {
	if caller.ID == uuid.Nil {
		return apperror.ErrInvalidToken()
	}

	switch op {
	case ports.OpListTenants:
		return nil
	case ports.OpCreateWallet, ports.OpUpdateWallet, ports.OpRotateSecret, ports.OpSetWalletActive:
		if caller.Role != domain.RoleAdmin {
			g.log.Warn().
				Str("caller", caller.Username).
				Str("role", string(caller.Role)).
				Str("operation", string(op)).
				Msg("operation denied")
			return apperror.ErrForbidden()
		}
		return nil
	default:
		g.log.Error().Str("operation", string(op)).Msg("unknown operation denied")
		return apperror.ErrForbidden()
	}
}
