package integration

import (
	"context"
	"sort"
	"strings"
	"sync"

	"tenant-wallet-service/internal/core/domain"
	"tenant-wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Tenant Repo ---

type inMemoryTenantRepo struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*domain.Tenant
	wallets *inMemoryWalletRepo
}

func newInMemoryTenantRepo(wallets *inMemoryWalletRepo) *inMemoryTenantRepo {
	return &inMemoryTenantRepo{
		tenants: make(map[uuid.UUID]*domain.Tenant),
		wallets: wallets,
	}
}

func (r *inMemoryTenantRepo) seed(t *domain.Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.ID] = t
}

func (r *inMemoryTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (r *inMemoryTenantRepo) ListWithWalletStatus(ctx context.Context, searchText string) ([]domain.TenantWalletRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(searchText)
	var rows []domain.TenantWalletRow
	for _, t := range r.tenants {
		if t.AccountType != domain.AccountTypeOrganization {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.DisplayName), needle) &&
			!strings.Contains(strings.ToLower(t.ContactEmail), needle) {
			continue
		}
		row := domain.TenantWalletRow{Tenant: *t}
		if w, _ := r.wallets.GetByTenantID(ctx, t.ID); w != nil {
			cp := *w
			row.Wallet = &cp
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Tenant.DisplayName != rows[j].Tenant.DisplayName {
			return rows[i].Tenant.DisplayName < rows[j].Tenant.DisplayName
		}
		return rows[i].Tenant.ID.String() < rows[j].Tenant.ID.String()
	})
	return rows, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet // keyed by tenant ID
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.wallets[w.TenantID]; exists {
		return false, nil
	}
	cp := *w
	r.wallets[w.TenantID] = &cp
	return true, nil
}

func (r *inMemoryWalletRepo) GetByTenantID(ctx context.Context, tenantID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[tenantID]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByTenantIDForUpdate(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByTenantID(ctx, tenantID)
}

func (r *inMemoryWalletRepo) UpdateCredentials(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, publicKey string, webhookSecretEnc *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[tenantID]
	if !ok {
		return ports.ErrStaleWallet
	}
	w.PublicKey = publicKey
	w.WebhookSecretEnc = webhookSecretEnc
	return nil
}

func (r *inMemoryWalletRepo) UpdateSecretKey(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, secretKeyEnc string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[tenantID]
	if !ok {
		return ports.ErrStaleWallet
	}
	w.SecretKeyEnc = secretKeyEnc
	return nil
}

func (r *inMemoryWalletRepo) SetActive(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[tenantID]
	if !ok {
		return ports.ErrStaleWallet
	}
	w.IsActive = active
	return nil
}

// --- In-Memory Admin Repo ---

type inMemoryAdminRepo struct {
	mu     sync.RWMutex
	admins map[string]*domain.Admin // keyed by username
}

func newInMemoryAdminRepo() *inMemoryAdminRepo {
	return &inMemoryAdminRepo{admins: make(map[string]*domain.Admin)}
}

func (r *inMemoryAdminRepo) GetByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.admins[username]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func (r *inMemoryAdminRepo) Create(ctx context.Context, a *domain.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.admins[a.Username]; exists {
		return nil
	}
	r.admins[a.Username] = a
	return nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.RWMutex
	entries []*domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, log)
	return nil
}

// --- In-Memory Transactor ---

// inMemoryTransactor emulates row-level locking with a single mutex:
// Begin blocks until the previous transaction commits or rolls back,
// which gives the same serialization the SELECT FOR UPDATE path provides
// against real PostgreSQL.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &lockingTx{release: &t.mu}, nil
}

// lockingTx is a no-op pgx.Tx that releases the transactor lock exactly
// once, on Commit or Rollback.
type lockingTx struct {
	release *sync.Mutex
	done    bool
	mu      sync.Mutex
}

func (t *lockingTx) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.done {
		t.done = true
		t.release.Unlock()
	}
}

func (t *lockingTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *lockingTx) Commit(ctx context.Context) error          { t.finish(); return nil }
func (t *lockingTx) Rollback(ctx context.Context) error        { t.finish(); return nil }
func (t *lockingTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *lockingTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *lockingTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *lockingTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *lockingTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *lockingTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *lockingTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *lockingTx) Conn() *pgx.Conn { return nil }
