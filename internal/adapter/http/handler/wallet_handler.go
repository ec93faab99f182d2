package handler

import (
	"time"

	"tenant-wallet-service/internal/adapter/http/dto"
	"tenant-wallet-service/internal/adapter/http/middleware"
	"tenant-wallet-service/internal/core/domain"
	"tenant-wallet-service/internal/core/ports"
	"tenant-wallet-service/pkg/apperror"
	"tenant-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles the wallet lifecycle endpoints. Every endpoint
// is scoped to a tenant via the path parameter.
type WalletHandler struct {
	walletSvc ports.WalletLifecycleService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletLifecycleService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Create handles POST /api/v1/tenants/:id/wallet.
func (h *WalletHandler) Create(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid tenant id"))
		return
	}

	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	wallet, err := h.walletSvc.Create(c.Request.Context(), caller, ports.CreateWalletRequest{
		TenantID:      tenantID,
		PublicKey:     req.PublicKey,
		SecretKey:     req.SecretKey,
		WebhookSecret: req.WebhookSecret,
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, walletToResponse(wallet))
}

// Update handles PATCH /api/v1/tenants/:id/wallet.
func (h *WalletHandler) Update(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid tenant id"))
		return
	}

	var req dto.UpdateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	wallet, err := h.walletSvc.Update(c.Request.Context(), caller, ports.UpdateWalletRequest{
		TenantID:           tenantID,
		PublicKey:          req.PublicKey,
		WebhookSecret:      req.WebhookSecret,
		ClearWebhookSecret: req.ClearWebhookSecret,
		SecretKey:          req.SecretKey,
		ClientIP:           c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, walletToResponse(wallet))
}

// RotateSecret handles POST /api/v1/tenants/:id/wallet/rotate-secret.
func (h *WalletHandler) RotateSecret(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid tenant id"))
		return
	}

	var req dto.RotateSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	wallet, err := h.walletSvc.RotateSecret(c.Request.Context(), caller, tenantID, req.SecretKey, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, walletToResponse(wallet))
}

// SetActive handles PUT /api/v1/tenants/:id/wallet/active.
func (h *WalletHandler) SetActive(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid tenant id"))
		return
	}

	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	wallet, err := h.walletSvc.SetActive(c.Request.Context(), caller, ports.SetActiveRequest{
		TenantID:  tenantID,
		Active:    *req.Active,
		Confirmed: req.Confirm,
		ClientIP:  c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, walletToResponse(wallet))
}

// walletToResponse redacts a wallet for transport. Ciphertext never
// leaves the service boundary.
func walletToResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		TenantID:         w.TenantID.String(),
		PublicKey:        w.PublicKey,
		MaskedSecretKey:  w.MaskedSecretKey(),
		HasWebhookSecret: w.HasWebhookSecret(),
		IsActive:         w.IsActive,
		CreatedAt:        w.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        w.UpdatedAt.Format(time.RFC3339),
	}
}
