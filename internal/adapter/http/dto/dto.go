package dto

// LoginRequest is the request body for admin login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// CreateWalletRequest is the request body for wallet provisioning.
type CreateWalletRequest struct {
	PublicKey     string  `json:"public_key" binding:"required,min=1,max=200,safe_id"`
	SecretKey     string  `json:"secret_key" binding:"required,max=500"`
	WebhookSecret *string `json:"webhook_secret,omitempty"`
}

// UpdateWalletRequest is the request body for a wallet edit.
// A nil webhook_secret leaves the stored value unchanged; clearing
// requires clear_webhook_secret=true. secret_key is accepted here only
// so the server can reject it with a pointer at the rotation endpoint.
type UpdateWalletRequest struct {
	PublicKey          *string `json:"public_key,omitempty"`
	WebhookSecret      *string `json:"webhook_secret,omitempty"`
	ClearWebhookSecret bool    `json:"clear_webhook_secret,omitempty"`
	SecretKey          *string `json:"secret_key,omitempty"`
}

// RotateSecretRequest is the request body for secret key rotation.
type RotateSecretRequest struct {
	SecretKey string `json:"secret_key" binding:"required,max=500"`
}

// SetActiveRequest is the request body for the activation toggle.
// Active is a pointer so a missing field is distinguishable from false.
type SetActiveRequest struct {
	Active  *bool `json:"active" binding:"required"`
	Confirm bool  `json:"confirm,omitempty"`
}

// WalletResponse is the redacted wallet representation. The secret key
// only ever appears masked, and the webhook secret as bare presence.
type WalletResponse struct {
	TenantID         string `json:"tenant_id"`
	PublicKey        string `json:"public_key"`
	MaskedSecretKey  string `json:"masked_secret_key"`
	HasWebhookSecret bool   `json:"has_webhook_secret"`
	IsActive         bool   `json:"is_active"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// TenantRowResponse is one row of the tenant directory listing.
type TenantRowResponse struct {
	TenantID        string  `json:"tenant_id"`
	DisplayName     string  `json:"display_name"`
	ContactEmail    string  `json:"contact_email"`
	HasWallet       bool    `json:"has_wallet"`
	PublicKey       string  `json:"public_key,omitempty"`
	MaskedSecretKey string  `json:"masked_secret_key,omitempty"`
	HasWebhook      bool    `json:"has_webhook_secret"`
	IsActive        bool    `json:"is_active"`
	WalletCreatedAt *string `json:"wallet_created_at,omitempty"`
	WalletUpdatedAt *string `json:"wallet_updated_at,omitempty"`
}

// TenantListResponse wraps the directory listing.
type TenantListResponse struct {
	Items []TenantRowResponse `json:"items"`
	Total int                 `json:"total"`
}
