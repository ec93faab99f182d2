package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountType classifies a tenant account in the directory.
type AccountType string

const (
	AccountTypeOrganization  AccountType = "ORGANIZATION"
	AccountTypeIndividual    AccountType = "INDIVIDUAL"
	AccountTypeStaff         AccountType = "STAFF"
	AccountTypeAdministrator AccountType = "ADMINISTRATOR"
)

// Tenant is a directory account. Only organization accounts may own a
// wallet. This service reads tenants and never mutates them.
type Tenant struct {
	ID           uuid.UUID   `json:"id"`
	DisplayName  string      `json:"display_name"`
	ContactEmail string      `json:"contact_email"`
	AccountType  AccountType `json:"account_type"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// CanOwnWallet reports whether the tenant is eligible for a wallet.
func (t *Tenant) CanOwnWallet() bool {
	return t.AccountType == AccountTypeOrganization
}

// TenantWalletRow is one row of the directory listing: a tenant left-joined
// against its wallet. Wallet is nil when none has been provisioned.
type TenantWalletRow struct {
	Tenant Tenant
	Wallet *Wallet
}
