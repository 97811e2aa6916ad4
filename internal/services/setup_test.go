package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/labgate/internal/auth"
	"github.com/BradenHooton/labgate/internal/models"
	"github.com/BradenHooton/labgate/internal/repositories"
	pkglogger "github.com/BradenHooton/labgate/pkg/logger"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "test-secret-32-characters-long!!"
	testPassword = "Correct#Horse9"
)

var testStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testStack wires every service over one MemoryStore and a shared FakeClock
type testStack struct {
	store       *repositories.MemoryStore
	clock       *FakeClock
	notifier    *RecordingNotifier
	tokens      *auth.TokenManager
	lockout     *LockoutService
	credentials *CredentialService
	codes       *CodeService
	sessions    *SessionService
	auth        *AuthService
	admin       *AdminService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	logger := discardLogger()
	audit := pkglogger.NewAuditLogger(logger)
	clock := NewFakeClock(testStart)
	store := repositories.NewMemoryStore()

	tokens, err := auth.NewTokenManager(testSecret, 24*time.Hour)
	require.NoError(t, err)
	tokens.SetClock(clock.Now)

	lockout := NewLockoutService(store.LoginAttempts(), store.Lockouts(), DefaultLockoutConfig(), clock, logger, audit)
	credentials := NewCredentialService(store.Accounts(), lockout, nil, logger, audit)
	codes := NewCodeService(store.Codes(), 5*time.Minute, clock, logger)
	sessions := NewSessionService(store.Sessions(), tokens, clock, logger, audit)
	notifier := &RecordingNotifier{}

	authService := NewAuthService(store.Accounts(), credentials, codes, sessions, notifier, clock, logger, audit)
	authService.SetPasswordCost(bcrypt.MinCost)

	adminService := NewAdminService(store.Accounts(), lockout, sessions, clock, logger, audit)
	adminService.SetPasswordCost(bcrypt.MinCost)

	return &testStack{
		store:       store,
		clock:       clock,
		notifier:    notifier,
		tokens:      tokens,
		lockout:     lockout,
		credentials: credentials,
		codes:       codes,
		sessions:    sessions,
		auth:        authService,
		admin:       adminService,
	}
}

func (s *testStack) seed(t *testing.T, role models.Role, email string) *models.Account {
	t.Helper()
	account, err := s.admin.CreateAccount(context.Background(), role, email, "Test Account", testPassword)
	require.NoError(t, err)
	return account
}

var testClient = ClientMeta{IPAddress: "203.0.113.7", UserAgent: "test-agent", DeviceInfo: "laptop"}
