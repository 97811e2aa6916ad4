package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/labgate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Super admin flow
// ============================================================================

func TestAuthService_SuperAdminFlow(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	root := st.seed(t, models.RoleSuperAdmin, "root@lab.example")

	challenge, err := st.auth.SuperAdminLogin(ctx, "root@lab.example", testPassword, testClient)
	require.NoError(t, err)
	assert.Equal(t, "root@lab.example", challenge.Email)

	code := st.notifier.Codes["root@lab.example"]
	require.Len(t, code, 6)

	result, err := st.auth.SuperAdminVerify(ctx, "root@lab.example", code, testClient)
	require.NoError(t, err)
	assert.Equal(t, root.ID, result.Account.ID)
	assert.NotEmpty(t, result.Token)

	claims, err := st.auth.Authorize(ctx, result.Token, models.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, result.Session.ID, claims.SessionID)

	_, err = st.auth.SuperAdminVerify(ctx, "root@lab.example", code, testClient)
	assert.ErrorIs(t, err, models.ErrInvalidCode)
}

func TestAuthService_SuperAdminLogin_WrongPasswordSendsNothing(t *testing.T) {
	st := newTestStack(t)
	st.seed(t, models.RoleSuperAdmin, "root@lab.example")

	_, err := st.auth.SuperAdminLogin(context.Background(), "root@lab.example", "Wrong#Pass1", testClient)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Empty(t, st.notifier.Codes)
}

func TestAuthService_SuperAdminLogin_NotifierFailureIsSwallowed(t *testing.T) {
	st := newTestStack(t)
	st.seed(t, models.RoleSuperAdmin, "root@lab.example")
	st.notifier.Err = errors.New("ses throttled")

	challenge, err := st.auth.SuperAdminLogin(context.Background(), "root@lab.example", testPassword, testClient)
	require.NoError(t, err)
	assert.NotNil(t, challenge)
}

func TestAuthService_SuperAdminResendCode(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	st.seed(t, models.RoleSuperAdmin, "root@lab.example")

	_, err := st.auth.SuperAdminResendCode(ctx, "ghost@lab.example")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = st.auth.SuperAdminResendCode(ctx, "root@lab.example")
	require.NoError(t, err)
	code := st.notifier.Codes["root@lab.example"]

	_, err = st.auth.SuperAdminVerify(ctx, "root@lab.example", code, testClient)
	assert.NoError(t, err)
}

func TestAuthService_SuperAdminVerify_DeactivatedAfterCode(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	root := st.seed(t, models.RoleSuperAdmin, "root@lab.example")

	_, err := st.auth.SuperAdminLogin(ctx, "root@lab.example", testPassword, testClient)
	require.NoError(t, err)
	require.NoError(t, st.admin.SetAccountActive(ctx, models.RoleSuperAdmin, root.ID, false))

	_, err = st.auth.SuperAdminVerify(ctx, "root@lab.example", st.notifier.Codes["root@lab.example"], testClient)
	assert.ErrorIs(t, err, models.ErrAccountInactive)
}

// ============================================================================
// Admin flow
// ============================================================================

func TestAuthService_AdminLogin_SingleSession(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	admin := st.seed(t, models.RoleAdmin, "ada@lab.example")

	first, err := st.auth.AdminLogin(ctx, "ada@lab.example", testPassword, testClient)
	require.NoError(t, err)

	_, err = st.auth.AdminLogin(ctx, "ada@lab.example", testPassword, ClientMeta{DeviceInfo: "tablet"})
	var conflict *models.AlreadyLoggedInError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, first.Session.ID, conflict.Session.ID)

	active, err := st.sessions.GetActiveSession(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Session.ID, active.ID)

	// Logging out frees the slot
	require.NoError(t, st.auth.Logout(ctx, first.Token, models.RoleAdmin))
	_, err = st.auth.AdminLogin(ctx, "ada@lab.example", testPassword, testClient)
	assert.NoError(t, err)
}

func TestAuthService_Authorize(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	st.seed(t, models.RoleAdmin, "ada@lab.example")

	result, err := st.auth.AdminLogin(ctx, "ada@lab.example", testPassword, testClient)
	require.NoError(t, err)

	t.Run("correct role", func(t *testing.T) {
		_, err := st.auth.Authorize(ctx, result.Token, models.RoleAdmin)
		assert.NoError(t, err)
	})

	t.Run("wrong role", func(t *testing.T) {
		_, err := st.auth.Authorize(ctx, result.Token, models.RoleSuperAdmin)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := st.auth.Authorize(ctx, "not-a-token", models.RoleAdmin)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("revoked session", func(t *testing.T) {
		_, err := st.auth.LogoutAll(ctx, result.Account.ID)
		require.NoError(t, err)
		_, err = st.auth.Authorize(ctx, result.Token, models.RoleAdmin)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})
}

func TestAuthService_Logout_IgnoresInvalidTokens(t *testing.T) {
	st := newTestStack(t)
	assert.NoError(t, st.auth.Logout(context.Background(), "", models.RoleAdmin))
	assert.NoError(t, st.auth.Logout(context.Background(), "garbage", models.RoleAdmin))
}

func TestAuthService_Logout_IgnoresOtherConsoleTokens(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	st.seed(t, models.RoleSuperAdmin, "root@lab.example")

	_, err := st.auth.SuperAdminLogin(ctx, "root@lab.example", testPassword, testClient)
	require.NoError(t, err)
	result, err := st.auth.SuperAdminVerify(ctx, "root@lab.example", st.notifier.Codes["root@lab.example"], testClient)
	require.NoError(t, err)

	require.NoError(t, st.auth.Logout(ctx, result.Token, models.RoleAdmin))
	_, err = st.auth.Authorize(ctx, result.Token, models.RoleSuperAdmin)
	assert.NoError(t, err, "admin logout must not end a super admin session")

	require.NoError(t, st.auth.Logout(ctx, result.Token, models.RoleSuperAdmin))
	_, err = st.auth.Authorize(ctx, result.Token, models.RoleSuperAdmin)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

// ============================================================================
// Password change
// ============================================================================

func TestAuthService_ChangePassword_WrongGuessesLockAccount(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	st.seed(t, models.RoleSuperAdmin, "root@lab.example")

	_, err := st.auth.SuperAdminLogin(ctx, "root@lab.example", testPassword, testClient)
	require.NoError(t, err)
	result, err := st.auth.SuperAdminVerify(ctx, "root@lab.example", st.notifier.Codes["root@lab.example"], testClient)
	require.NoError(t, err)
	claims, err := st.auth.Authorize(ctx, result.Token, models.RoleSuperAdmin)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		st.clock.Advance(time.Second)
		err := st.auth.ChangePassword(ctx, claims, "Guess#Number1", "Brand#New2Pass", testClient)
		require.ErrorIs(t, err, models.ErrInvalidCredentials, "guess %d", i+1)
	}

	st.clock.Advance(time.Second)
	err = st.auth.ChangePassword(ctx, claims, "Guess#Number1", "Brand#New2Pass", testClient)
	var locked *models.AccountLockedError
	require.True(t, errors.As(err, &locked))

	// Even the right current password is refused while locked
	err = st.auth.ChangePassword(ctx, claims, testPassword, "Brand#New2Pass", testClient)
	assert.ErrorIs(t, err, models.ErrAccountLocked)
}

func TestAuthService_ChangePassword_RevokesAllSessions(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	st.seed(t, models.RoleSuperAdmin, "root@lab.example")

	tokens := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		_, err := st.auth.SuperAdminLogin(ctx, "root@lab.example", testPassword, testClient)
		require.NoError(t, err)
		result, err := st.auth.SuperAdminVerify(ctx, "root@lab.example", st.notifier.Codes["root@lab.example"], testClient)
		require.NoError(t, err)
		tokens = append(tokens, result.Token)
	}

	claims, err := st.auth.Authorize(ctx, tokens[0], models.RoleSuperAdmin)
	require.NoError(t, err)

	require.NoError(t, st.auth.ChangePassword(ctx, claims, testPassword, "Brand#New2Pass", testClient))

	for _, token := range tokens {
		// The signature still verifies; the session check rejects it
		_, err := st.sessions.VerifyToken(token)
		require.NoError(t, err)
		_, err = st.auth.Authorize(ctx, token, models.RoleSuperAdmin)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	}

	_, err = st.credentials.Verify(ctx, models.RoleSuperAdmin, "root@lab.example", "Brand#New2Pass", testClient)
	assert.NoError(t, err)
}

func TestAuthService_ChangePassword_Rejections(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	st.seed(t, models.RoleAdmin, "ada@lab.example")

	result, err := st.auth.AdminLogin(ctx, "ada@lab.example", testPassword, testClient)
	require.NoError(t, err)
	claims, err := st.auth.Authorize(ctx, result.Token, models.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name    string
		current string
		next    string
		want    error
	}{
		{"wrong current password", "Wrong#Pass1", "Brand#New2Pass", models.ErrInvalidCredentials},
		{"weak new password", testPassword, "short", models.ErrBadRequest},
		{"unchanged password", testPassword, testPassword, models.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := st.auth.ChangePassword(ctx, claims, tt.current, tt.next, testClient)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// Nothing above ended the session
	_, err = st.auth.Authorize(ctx, result.Token, models.RoleAdmin)
	assert.NoError(t, err)
}
