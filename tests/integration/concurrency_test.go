package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The in-memory transactor serializes lifecycle writes the same way the
// SELECT FOR UPDATE path does against PostgreSQL, so these tests assert
// exact outcomes rather than just the absence of panics.

func TestConcurrentWalletCreation(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, testAdminUser, testAdminPassword)

	const attempts = 10
	var created, conflicted, other int64
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			status, env, _ := doJSON(t, app, http.MethodPost, walletPath(app.orgID), token, map[string]any{
				"public_key": fmt.Sprintf("pk_live_race_%02d", n),
				"secret_key": fmt.Sprintf("sk_live_race_secret_%02d", n),
			})
			switch {
			case status == http.StatusCreated:
				atomic.AddInt64(&created, 1)
			case status == http.StatusConflict && env.ErrorCode == "WAL_004":
				atomic.AddInt64(&conflicted, 1)
			default:
				atomic.AddInt64(&other, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), created, "exactly one creation wins")
	assert.Equal(t, int64(attempts-1), conflicted)
	assert.Equal(t, int64(0), other)

	// The surviving wallet is one of the submitted credential sets, intact.
	stored, err := app.wallets.GetByTenantID(context.Background(), app.orgID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Contains(t, stored.PublicKey, "pk_live_race_")
}

func TestConcurrentSecretRotation(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, testAdminUser, testAdminPassword)

	status, _, _ := doJSON(t, app, http.MethodPost, walletPath(app.orgID), token, map[string]any{
		"public_key": "pk_live_rotation_race",
		"secret_key": "sk_live_rotation_race_initial",
	})
	require.Equal(t, http.StatusCreated, status)

	before, err := app.wallets.GetByTenantID(context.Background(), app.orgID)
	require.NoError(t, err)

	const rotations = 8
	var succeeded int64
	var wg sync.WaitGroup

	for i := 0; i < rotations; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			status, _, _ := doJSON(t, app, http.MethodPost, walletPath(app.orgID)+"/rotate-secret", token, map[string]any{
				"secret_key": fmt.Sprintf("sk_live_rotated_race_%02d", n),
			})
			if status == http.StatusOK {
				atomic.AddInt64(&succeeded, 1)
			}
		}(i)
	}
	wg.Wait()

	// Serialized rotations all succeed; the stored ciphertext reflects
	// exactly one of them.
	assert.Equal(t, int64(rotations), succeeded)

	after, err := app.wallets.GetByTenantID(context.Background(), app.orgID)
	require.NoError(t, err)
	assert.NotEqual(t, before.SecretKeyEnc, after.SecretKeyEnc)
	assert.Equal(t, "pk_live_rotation_race", after.PublicKey, "rotation never touches other fields")
}

func TestConcurrentMixedMutations(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, testAdminUser, testAdminPassword)

	status, _, _ := doJSON(t, app, http.MethodPost, walletPath(app.orgID), token, map[string]any{
		"public_key":     "pk_live_mixed",
		"secret_key":     "sk_live_mixed_initial_secret",
		"webhook_secret": "whsec_mixed",
	})
	require.Equal(t, http.StatusCreated, status)

	const workers = 6
	var completed int64
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			var status int
			switch n % 3 {
			case 0:
				status, _, _ = doJSON(t, app, http.MethodPatch, walletPath(app.orgID), token, map[string]any{
					"public_key": fmt.Sprintf("pk_live_mixed_%02d", n),
				})
			case 1:
				status, _, _ = doJSON(t, app, http.MethodPost, walletPath(app.orgID)+"/rotate-secret", token, map[string]any{
					"secret_key": fmt.Sprintf("sk_live_mixed_rotated_%02d", n),
				})
			case 2:
				status, _, _ = doJSON(t, app, http.MethodPut, walletPath(app.orgID)+"/active", token, map[string]any{
					"active": true,
				})
			}
			if status == http.StatusOK {
				atomic.AddInt64(&completed, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(workers), completed, "every serialized mutation completes")

	// The row is internally consistent afterwards: webhook secret intact,
	// wallet active, public key from one of the updates.
	final, err := app.wallets.GetByTenantID(context.Background(), app.orgID)
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.True(t, final.IsActive)
	assert.NotNil(t, final.WebhookSecretEnc)
	assert.Contains(t, final.PublicKey, "pk_live_mixed")
}
