package services

import (
	"context"
	"time"

	"github.com/BradenHooton/labgate/internal/models"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	GetByEmailFunc     func(ctx context.Context, role models.Role, email string) (*models.Account, error)
	GetByIDFunc        func(ctx context.Context, role models.Role, id string) (*models.Account, error)
	CreateFunc         func(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdatePasswordFunc func(ctx context.Context, role models.Role, id, passwordHash string, changedAt time.Time) error
	SetActiveFunc      func(ctx context.Context, role models.Role, id string, active bool) error
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, role models.Role, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, role, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByID(ctx context.Context, role models.Role, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, role, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, role models.Role, id, passwordHash string, changedAt time.Time) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, role, id, passwordHash, changedAt)
	}
	return nil
}

func (m *MockAccountRepository) SetActive(ctx context.Context, role models.Role, id string, active bool) error {
	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(ctx, role, id, active)
	}
	return nil
}

// MockLockoutRepository implements LockoutRepository for testing
type MockLockoutRepository struct {
	CreateFunc        func(ctx context.Context, lockout *models.Lockout) (*models.Lockout, error)
	GetActiveFunc     func(ctx context.Context, accountID string, now time.Time) (*models.Lockout, error)
	DeactivateAllFunc func(ctx context.Context, accountID string) (int64, error)
}

func (m *MockLockoutRepository) Create(ctx context.Context, lockout *models.Lockout) (*models.Lockout, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, lockout)
	}
	return lockout, nil
}

func (m *MockLockoutRepository) GetActive(ctx context.Context, accountID string, now time.Time) (*models.Lockout, error) {
	if m.GetActiveFunc != nil {
		return m.GetActiveFunc(ctx, accountID, now)
	}
	return nil, models.ErrNotFound
}

func (m *MockLockoutRepository) DeactivateAll(ctx context.Context, accountID string) (int64, error) {
	if m.DeactivateAllFunc != nil {
		return m.DeactivateAllFunc(ctx, accountID)
	}
	return 0, nil
}

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	CreateFunc                  func(ctx context.Context, session *models.Session) (*models.Session, error)
	CreateExclusiveFunc         func(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByIDFunc                 func(ctx context.Context, id string) (*models.Session, error)
	GetActiveByAccountFunc      func(ctx context.Context, accountID string, now time.Time) (*models.Session, error)
	TouchFunc                   func(ctx context.Context, id string, at time.Time) error
	DeactivateFunc              func(ctx context.Context, id, reason string, at time.Time) error
	DeactivateAllForAccountFunc func(ctx context.Context, accountID, reason string, at time.Time) (int64, error)
	DeactivateExpiredFunc       func(ctx context.Context, now time.Time) (int64, error)
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return session, nil
}

func (m *MockSessionRepository) CreateExclusive(ctx context.Context, session *models.Session) (*models.Session, error) {
	if m.CreateExclusiveFunc != nil {
		return m.CreateExclusiveFunc(ctx, session)
	}
	return session, nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionRepository) GetActiveByAccount(ctx context.Context, accountID string, now time.Time) (*models.Session, error) {
	if m.GetActiveByAccountFunc != nil {
		return m.GetActiveByAccountFunc(ctx, accountID, now)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, id, at)
	}
	return nil
}

func (m *MockSessionRepository) Deactivate(ctx context.Context, id, reason string, at time.Time) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, id, reason, at)
	}
	return nil
}

func (m *MockSessionRepository) DeactivateAllForAccount(ctx context.Context, accountID, reason string, at time.Time) (int64, error) {
	if m.DeactivateAllForAccountFunc != nil {
		return m.DeactivateAllForAccountFunc(ctx, accountID, reason, at)
	}
	return 0, nil
}

func (m *MockSessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.DeactivateExpiredFunc != nil {
		return m.DeactivateExpiredFunc(ctx, now)
	}
	return 0, nil
}

// RecordingNotifier keeps every code it is asked to deliver
type RecordingNotifier struct {
	Err   error
	Codes map[string]string
}

func (n *RecordingNotifier) SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	if n.Err != nil {
		return n.Err
	}
	if n.Codes == nil {
		n.Codes = make(map[string]string)
	}
	n.Codes[email] = code
	return nil
}
