package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "tenant-wallet-service/internal/adapter/http/handler"
	redisStorage "tenant-wallet-service/internal/adapter/storage/redis"
	"tenant-wallet-service/internal/core/domain"
	"tenant-wallet-service/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAESKey        = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	testAdminUser     = "root-admin"
	testAdminPassword = "integration-test-password"
	testViewerUser    = "auditor"
	// Contains characters an HTML escaper would mangle; logging in with it
	// proves credentials travel to verification untouched.
	testViewerPass = `viewer&pass<2026>'s`
)

// testApp wires real services against in-memory repositories and a
// miniredis-backed rate limit store, exposed over a real HTTP server.
type testApp struct {
	server  *httptest.Server
	redis   *miniredis.Miniredis
	tenants *inMemoryTenantRepo
	wallets *inMemoryWalletRepo
	orgID   uuid.UUID
	indivID uuid.UUID
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := zerolog.Nop()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	redisClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	walletRepo := newInMemoryWalletRepo()
	tenantRepo := newInMemoryTenantRepo(walletRepo)
	adminRepo := newInMemoryAdminRepo()
	auditRepo := newInMemoryAuditRepo()
	transactor := newInMemoryTransactor()

	encSvc, err := service.NewAESEncryptionService(testAESKey)
	require.NoError(t, err)
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService("integration-test-jwt-secret", time.Hour, "tenant-wallet-service")
	auditSvc := service.NewAuditService(auditRepo, log)
	policy := service.NewPolicyGate(log)

	authSvc := service.NewAuthService(adminRepo, hashSvc, tokenSvc, auditSvc, log)
	walletSvc := service.NewWalletService(tenantRepo, walletRepo, encSvc, policy, transactor, auditSvc, log)
	directorySvc := service.NewDirectoryService(tenantRepo, policy)

	ctx := context.Background()
	require.NoError(t, authSvc.Bootstrap(ctx, testAdminUser, testAdminPassword))

	// Seed a read-only principal alongside the bootstrapped admin.
	viewerHash, err := hashSvc.Hash(testViewerPass)
	require.NoError(t, err)
	require.NoError(t, adminRepo.Create(ctx, &domain.Admin{
		ID:           uuid.New(),
		Username:     testViewerUser,
		PasswordHash: viewerHash,
		Role:         domain.RoleViewer,
		CreatedAt:    time.Now().UTC(),
	}))

	// Seed directory tenants: one organization, one individual.
	orgID := uuid.New()
	indivID := uuid.New()
	now := time.Now().UTC()
	tenantRepo.seed(&domain.Tenant{
		ID:           orgID,
		DisplayName:  "Acme Logistics",
		ContactEmail: "ops@acme.example",
		AccountType:  domain.AccountTypeOrganization,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	tenantRepo.seed(&domain.Tenant{
		ID:           indivID,
		DisplayName:  "Jordan Rivera",
		ContactEmail: "jordan@example.com",
		AccountType:  domain.AccountTypeIndividual,
		CreatedAt:    now,
		UpdatedAt:    now,
	})

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		WalletSvc:      walletSvc,
		DirectorySvc:   directorySvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(redisClient),
		Logger:         log,
	})

	app := &testApp{
		server:  httptest.NewServer(router),
		redis:   mr,
		tenants: tenantRepo,
		wallets: walletRepo,
		orgID:   orgID,
		indivID: indivID,
	}
	t.Cleanup(app.close)
	return app
}

// envelope matches both the success and error response shapes.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
	Message   string          `json:"message"`
}

type walletBody struct {
	TenantID         string `json:"tenant_id"`
	PublicKey        string `json:"public_key"`
	MaskedSecretKey  string `json:"masked_secret_key"`
	HasWebhookSecret bool   `json:"has_webhook_secret"`
	IsActive         bool   `json:"is_active"`
}

func doJSON(t *testing.T, app *testApp, method, path, token string, body any) (int, envelope, string) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, app.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw bytes.Buffer
	_, err = raw.ReadFrom(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(raw.Bytes(), &env), "body: %s", raw.String())
	return resp.StatusCode, env, raw.String()
}

func login(t *testing.T, app *testApp, username, password string) string {
	t.Helper()
	status, env, _ := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func walletPath(tenantID uuid.UUID) string {
	return fmt.Sprintf("/api/v1/tenants/%s/wallet", tenantID)
}

func decodeWallet(t *testing.T, env envelope) walletBody {
	t.Helper()
	var w walletBody
	require.NoError(t, json.Unmarshal(env.Data, &w))
	return w
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.server.Client().Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)

	status, env, _ := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": testAdminUser,
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_001", env.ErrorCode)

	token := login(t, app, testAdminUser, testAdminPassword)
	assert.NotEmpty(t, token)
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp(t)

	status, env, _ := doJSON(t, app, http.MethodGet, "/api/v1/tenants", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_002", env.ErrorCode)

	status, env, _ = doJSON(t, app, http.MethodGet, "/api/v1/tenants", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_002", env.ErrorCode)
}

func TestWalletProvisioning(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, testAdminUser, testAdminPassword)

	// Creation accepts any non-empty secret, including ones shorter than
	// the rotation minimum.
	status, env, raw := doJSON(t, app, http.MethodPost, walletPath(app.orgID), token, map[string]any{
		"public_key": "pk_live_acme_01",
		"secret_key": "sk_xyz",
	})
	require.Equal(t, http.StatusCreated, status, raw)

	w := decodeWallet(t, env)
	assert.Equal(t, app.orgID.String(), w.TenantID)
	assert.Equal(t, "pk_live_acme_01", w.PublicKey)
	assert.Equal(t, domain.MaskedSecret, w.MaskedSecretKey)
	assert.False(t, w.HasWebhookSecret)
	assert.True(t, w.IsActive, "new wallets start active")

	// The plaintext secret never appears in any response body.
	assert.NotContains(t, raw, "sk_xyz")

	// Stored secret is ciphertext, not plaintext.
	stored, err := app.wallets.GetByTenantID(context.Background(), app.orgID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "sk_xyz", stored.SecretKeyEnc)
	assert.NotContains(t, stored.SecretKeyEnc, "sk_xyz")
}

func TestWalletProvisioning_NonOrganizationTenant(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, testAdminUser, testAdminPassword)

	status, env, _ := doJSON(t, app, http.MethodPost, walletPath(app.indivID), token, map[string]any{
		"public_key": "pk_live_jordan",
		"secret_key": "sk_live_whatever",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "WAL_003", env.ErrorCode)
}

func TestWalletProvisioning_Duplicate(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, testAdminUser, testAdminPassword)

	status, _, _ := doJSON(t, app, http.MethodPost, walletPath(app.orgID), token, map[string]any{
		"public_key": "pk_live_one",
		"secret_key": "sk_live_one",
	})
	require.Equal(t, http.StatusCreated, status)

	status, env, _ := doJSON(t, app, http.MethodPost, walletPath(app.orgID), token, map[string]any{
		"public_key": "pk_live_two",
		"secret_key": "sk_live_two",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "WAL_004", env.ErrorCode)

	// The original credentials survive the rejected attempt.
	stored, err := app.wallets.GetByTenantID(context.Background(), app.orgID)
	require.NoError(t, err)
	assert.Equal(t, "pk_live_one", stored.PublicKey)
}

func TestWalletUpdate(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, testAdminUser, testAdminPassword)

	webhook := "whsec_original_value"
	status, _, _ := doJSON(t, app, http.MethodPost, walletPath(app.orgID), token, map[string]any{
		"public_key":     "pk_live_before",
		"secret_key":     "sk_live_original_secret",
		"webhook_secret": webhook,
	})
	require.Equal(t, http.StatusCreated, status)

	// An empty patch is rejected and changes nothing.
	status, env, _ := doJSON(t, app, http.MethodPatch, walletPath(app.orgID), token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "WAL_006", env.ErrorCode)

	// Changing the public key leaves the webhook secret in place.
	status, env, _ = doJSON(t, app, http.MethodPatch, walletPath(app.orgID), token, map[string]any{
		"public_key": "pk_live_after",
	})
	require.Equal(t, http.StatusOK, status)
	w := decodeWallet(t, env)
	assert.Equal(t, "pk_live_after", w.PublicKey)
	assert.True(t, w.HasWebhookSecret)

	// The secret key is not editable through the update path.
	status, env, _ = doJSON(t, app, http.MethodPatch, walletPath(app.orgID), token, map[string]any{
		"secret_key": "sk_live_smuggled",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "WAL_001", env.ErrorCode)

	// An empty webhook secret without the clear flag is ambiguous.
	status, env, _ = doJSON(t, app, http.MethodPatch, walletPath(app.orgID), token, map[string]any{
		"webhook_secret": "",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "WAL_001", env.ErrorCode)

	// Explicit clear removes the webhook secret.
	status, env, _ = doJSON(t, app, http.MethodPatch, walletPath(app.orgID), token, map[string]any{
		"clear_webhook_secret": true,
	})
	require.Equal(t, http.StatusOK, status)
	w = decodeWallet(t, env)
	assert.False(t, w.HasWebhookSecret)
}

func TestSecretRotation(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, testAdminUser, testAdminPassword)

	status, _, _ := doJSON(t, app, http.MethodPost, walletPath(app.orgID), token, map[string]any{
		"public_key": "pk_live_rotation",
		"secret_key": "sk_live_first_secret",
	})
	require.Equal(t, http.StatusCreated, status)

	rotate := walletPath(app.orgID) + "/rotate-secret"

	// A pasted-back masked value is rejected.
	status, env, _ := doJSON(t, app, http.MethodPost, rotate, token, map[string]any{
		"secret_key": domain.MaskedSecret,
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "WAL_001", env.ErrorCode)

	// Rotation enforces a minimum length that creation does not.
	status, env, _ = doJSON(t, app, http.MethodPost, rotate, token, map[string]any{
		"secret_key": "sk_short",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "WAL_001", env.ErrorCode)

	status, env, raw := doJSON(t, app, http.MethodPost, rotate, token, map[string]any{
		"secret_key": "sk_live_rotated_secret_value",
	})
	require.Equal(t, http.StatusOK, status, raw)
	w := decodeWallet(t, env)
	assert.Equal(t, domain.MaskedSecret, w.MaskedSecretKey)
	assert.Equal(t, "pk_live_rotation", w.PublicKey)
	assert.NotContains(t, raw, "sk_live_rotated_secret_value")

	// The stored ciphertext actually changed.
	stored, err := app.wallets.GetByTenantID(context.Background(), app.orgID)
	require.NoError(t, err)
	assert.NotContains(t, stored.SecretKeyEnc, "sk_live_rotated_secret_value")
}

func TestActivationToggle(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, testAdminUser, testAdminPassword)

	status, _, _ := doJSON(t, app, http.MethodPost, walletPath(app.orgID), token, map[string]any{
		"public_key": "pk_live_toggle",
		"secret_key": "sk_live_toggle_secret",
	})
	require.Equal(t, http.StatusCreated, status)

	active := walletPath(app.orgID) + "/active"

	// Deactivation demands explicit confirmation.
	status, env, _ := doJSON(t, app, http.MethodPut, active, token, map[string]any{
		"active": false,
	})
	assert.Equal(t, http.StatusPreconditionRequired, status)
	assert.Equal(t, "WAL_005", env.ErrorCode)

	status, env, _ = doJSON(t, app, http.MethodPut, active, token, map[string]any{
		"active":  false,
		"confirm": true,
	})
	require.Equal(t, http.StatusOK, status)
	w := decodeWallet(t, env)
	assert.False(t, w.IsActive)

	// Deactivating an inactive wallet is an idempotent success.
	status, env, _ = doJSON(t, app, http.MethodPut, active, token, map[string]any{
		"active":  false,
		"confirm": true,
	})
	require.Equal(t, http.StatusOK, status)
	assert.False(t, decodeWallet(t, env).IsActive)

	// Reactivation needs no confirmation, and credentials survive the
	// inactive period.
	status, env, _ = doJSON(t, app, http.MethodPut, active, token, map[string]any{
		"active": true,
	})
	require.Equal(t, http.StatusOK, status)
	w = decodeWallet(t, env)
	assert.True(t, w.IsActive)
	assert.Equal(t, "pk_live_toggle", w.PublicKey)
}

func TestDirectoryListing(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, testAdminUser, testAdminPassword)

	status, _, _ := doJSON(t, app, http.MethodPost, walletPath(app.orgID), token, map[string]any{
		"public_key":     "pk_live_directory",
		"secret_key":     "sk_live_directory_secret",
		"webhook_secret": "whsec_directory",
	})
	require.Equal(t, http.StatusCreated, status)

	status, env, raw := doJSON(t, app, http.MethodGet, "/api/v1/tenants", token, nil)
	require.Equal(t, http.StatusOK, status)

	var list struct {
		Items []struct {
			TenantID        string `json:"tenant_id"`
			DisplayName     string `json:"display_name"`
			HasWallet       bool   `json:"has_wallet"`
			MaskedSecretKey string `json:"masked_secret_key"`
			HasWebhook      bool   `json:"has_webhook_secret"`
			IsActive        bool   `json:"is_active"`
		} `json:"items"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))

	// Only organization tenants appear.
	require.Equal(t, 1, list.Total)
	row := list.Items[0]
	assert.Equal(t, app.orgID.String(), row.TenantID)
	assert.True(t, row.HasWallet)
	assert.Equal(t, domain.MaskedSecret, row.MaskedSecretKey)
	assert.True(t, row.HasWebhook)
	assert.True(t, row.IsActive)

	// Neither plaintext nor ciphertext leaks into the listing.
	assert.NotContains(t, raw, "sk_live_directory_secret")
	assert.NotContains(t, raw, "whsec_directory")

	// Search misses return an empty set, not an error.
	status, env, _ = doJSON(t, app, http.MethodGet, "/api/v1/tenants?search=nonexistent", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 0, list.Total)
}

func TestViewerRole(t *testing.T) {
	app := newTestApp(t)
	adminToken := login(t, app, testAdminUser, testAdminPassword)
	viewerToken := login(t, app, testViewerUser, testViewerPass)

	status, _, _ := doJSON(t, app, http.MethodPost, walletPath(app.orgID), adminToken, map[string]any{
		"public_key": "pk_live_viewer_case",
		"secret_key": "sk_live_viewer_secret",
	})
	require.Equal(t, http.StatusCreated, status)

	// Viewers can read the directory, without the masked secret hint.
	status, env, _ := doJSON(t, app, http.MethodGet, "/api/v1/tenants", viewerToken, nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Items []struct {
			HasWallet       bool   `json:"has_wallet"`
			MaskedSecretKey string `json:"masked_secret_key"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Items, 1)
	assert.True(t, list.Items[0].HasWallet)
	assert.Empty(t, list.Items[0].MaskedSecretKey)

	// Every mutation is forbidden for viewers.
	for _, tc := range []struct {
		method, path string
		body         map[string]any
	}{
		{http.MethodPost, walletPath(app.indivID), map[string]any{"public_key": "pk", "secret_key": "sk"}},
		{http.MethodPatch, walletPath(app.orgID), map[string]any{"public_key": "pk_changed"}},
		{http.MethodPost, walletPath(app.orgID) + "/rotate-secret", map[string]any{"secret_key": "sk_live_viewer_rotate"}},
		{http.MethodPut, walletPath(app.orgID) + "/active", map[string]any{"active": false, "confirm": true}},
	} {
		status, env, _ := doJSON(t, app, tc.method, tc.path, viewerToken, tc.body)
		assert.Equal(t, http.StatusForbidden, status, "%s %s", tc.method, tc.path)
		assert.Equal(t, "AUTH_003", env.ErrorCode)
	}
}

func TestLoginRateLimit(t *testing.T) {
	app := newTestApp(t)

	// The login window allows 10 attempts per client per minute.
	var lastStatus int
	var lastEnv envelope
	for i := 0; i < 11; i++ {
		lastStatus, lastEnv, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"username": testAdminUser,
			"password": "wrong-password",
		})
	}
	assert.Equal(t, http.StatusTooManyRequests, lastStatus)
	assert.Equal(t, "RATE_001", lastEnv.ErrorCode)

	// The window expires and attempts are admitted again.
	app.redis.FastForward(61 * time.Second)
	status, _, _ := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": testAdminUser,
		"password": testAdminPassword,
	})
	assert.Equal(t, http.StatusOK, status)
}
