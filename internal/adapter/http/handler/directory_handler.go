package handler

import (
	"strings"
	"time"

	"tenant-wallet-service/internal/adapter/http/dto"
	"tenant-wallet-service/internal/adapter/http/middleware"
	"tenant-wallet-service/internal/core/ports"
	"tenant-wallet-service/pkg/apperror"
	"tenant-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// DirectoryHandler handles the read-only tenant directory.
type DirectoryHandler struct {
	directorySvc ports.DirectoryService
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(directorySvc ports.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directorySvc: directorySvc}
}

// ListTenants handles GET /api/v1/tenants?search=.
func (h *DirectoryHandler) ListTenants(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	search := strings.TrimSpace(c.Query("search"))

	rows, err := h.directorySvc.ListTenants(c.Request.Context(), caller, search)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TenantRowResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, tenantRowToResponse(row))
	}

	response.OK(c, dto.TenantListResponse{
		Items: items,
		Total: len(items),
	})
}

func tenantRowToResponse(row ports.TenantWalletStatus) dto.TenantRowResponse {
	resp := dto.TenantRowResponse{
		TenantID:        row.Tenant.ID.String(),
		DisplayName:     row.Tenant.DisplayName,
		ContactEmail:    row.Tenant.ContactEmail,
		HasWallet:       row.HasWallet,
		PublicKey:       row.PublicKey,
		MaskedSecretKey: row.MaskedSecretKey,
		HasWebhook:      row.HasWebhook,
		IsActive:        row.IsActive,
	}
	if row.WalletCreatedAt != nil {
		s := row.WalletCreatedAt.Format(time.RFC3339)
		resp.WalletCreatedAt = &s
	}
	if row.WalletUpdatedAt != nil {
		s := row.WalletUpdatedAt.Format(time.RFC3339)
		resp.WalletUpdatedAt = &s
	}
	return resp
}
