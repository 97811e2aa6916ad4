package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/labgate/internal/models"
	"github.com/google/uuid"
)

// MemoryStore keeps every table in process memory. It backs DB_DRIVER=memory
// and the service tests, and enforces the same uniqueness rules as the
// Postgres schema.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[models.Role]map[string]models.Account
	attempts []models.LoginAttempt
	lockouts map[string]models.Lockout
	codes    map[string]models.VerificationCode
	sessions map[string]models.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: map[models.Role]map[string]models.Account{
			models.RoleSuperAdmin: {},
			models.RoleAdmin:      {},
		},
		lockouts: make(map[string]models.Lockout),
		codes:    make(map[string]models.VerificationCode),
		sessions: make(map[string]models.Session),
	}
}

func (m *MemoryStore) Accounts() *MemoryAccounts           { return &MemoryAccounts{m} }
func (m *MemoryStore) LoginAttempts() *MemoryLoginAttempts { return &MemoryLoginAttempts{m} }
func (m *MemoryStore) Lockouts() *MemoryLockouts           { return &MemoryLockouts{m} }
func (m *MemoryStore) Codes() *MemoryCodes                 { return &MemoryCodes{m} }
func (m *MemoryStore) Sessions() *MemorySessions           { return &MemorySessions{m} }

// MemoryAccounts is the in-memory AccountRepository
type MemoryAccounts struct{ m *MemoryStore }

func (r *MemoryAccounts) GetByEmail(_ context.Context, role models.Role, email string) (*models.Account, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	table, ok := r.m.accounts[role]
	if !ok {
		return nil, models.ErrBadRequest
	}
	email = strings.ToLower(email)
	for _, a := range table {
		if a.Email == email {
			out := a
			return &out, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *MemoryAccounts) GetByID(_ context.Context, role models.Role, id string) (*models.Account, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	table, ok := r.m.accounts[role]
	if !ok {
		return nil, models.ErrBadRequest
	}
	a, ok := table[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &a, nil
}

func (r *MemoryAccounts) Create(_ context.Context, account *models.Account) (*models.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	table, ok := r.m.accounts[account.Role]
	if !ok {
		return nil, models.ErrBadRequest
	}

	a := *account
	a.Email = strings.ToLower(a.Email)
	for _, existing := range table {
		if existing.Email == a.Email {
			return nil, models.ErrConflict
		}
	}

	a.ID = uuid.New().String()
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	table[a.ID] = a

	out := a
	return &out, nil
}

func (r *MemoryAccounts) UpdatePassword(_ context.Context, role models.Role, id, passwordHash string, changedAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	a, ok := r.m.accounts[role][id]
	if !ok {
		return models.ErrNotFound
	}
	a.PasswordHash = passwordHash
	a.PasswordChangedAt = &changedAt
	a.UpdatedAt = changedAt
	r.m.accounts[role][id] = a
	return nil
}

func (r *MemoryAccounts) SetActive(_ context.Context, role models.Role, id string, active bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	a, ok := r.m.accounts[role][id]
	if !ok {
		return models.ErrNotFound
	}
	a.IsActive = active
	a.UpdatedAt = time.Now()
	r.m.accounts[role][id] = a
	return nil
}

// MemoryLoginAttempts is the in-memory LoginAttemptRepository
type MemoryLoginAttempts struct{ m *MemoryStore }

func (r *MemoryLoginAttempts) RecordAttempt(_ context.Context, attempt *models.LoginAttempt) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	r.m.attempts = append(r.m.attempts, *attempt)
	return nil
}

func (r *MemoryLoginAttempts) GetFailedAttemptCount(_ context.Context, accountID string, since time.Time) (int, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	count := 0
	for _, a := range r.m.attempts {
		if a.AccountID == accountID && !a.Success && !a.CounterReset && !a.AttemptTime.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryLoginAttempts) GetLastResetTime(_ context.Context, accountID string) (*time.Time, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var last *time.Time
	for _, a := range r.m.attempts {
		if a.AccountID == accountID && (a.Success || a.CounterReset) && (last == nil || a.AttemptTime.After(*last)) {
			t := a.AttemptTime
			last = &t
		}
	}
	return last, nil
}

func (r *MemoryLoginAttempts) DeleteExpiredAttempts(_ context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	kept := r.m.attempts[:0]
	var removed int64
	for _, a := range r.m.attempts {
		if a.ExpiresAt.After(now) {
			kept = append(kept, a)
		} else {
			removed++
		}
	}
	r.m.attempts = kept
	return removed, nil
}

// MemoryLockouts is the in-memory LockoutRepository
type MemoryLockouts struct{ m *MemoryStore }

func (r *MemoryLockouts) Create(_ context.Context, lockout *models.Lockout) (*models.Lockout, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	l := *lockout
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	r.m.lockouts[l.ID] = l
	return &l, nil
}

func (r *MemoryLockouts) GetActive(_ context.Context, accountID string, now time.Time) (*models.Lockout, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var best *models.Lockout
	for _, l := range r.m.lockouts {
		if l.AccountID != accountID || !l.IsEffective(now) {
			continue
		}
		if best == nil || l.LockoutUntil.After(best.LockoutUntil) {
			candidate := l
			best = &candidate
		}
	}
	if best == nil {
		return nil, models.ErrNotFound
	}
	return best, nil
}

func (r *MemoryLockouts) DeactivateAll(_ context.Context, accountID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var n int64
	for id, l := range r.m.lockouts {
		if l.AccountID == accountID && l.IsActive {
			l.IsActive = false
			r.m.lockouts[id] = l
			n++
		}
	}
	return n, nil
}

// MemoryCodes is the in-memory VerificationCodeRepository
type MemoryCodes struct{ m *MemoryStore }

func (r *MemoryCodes) Create(_ context.Context, code *models.VerificationCode) (*models.VerificationCode, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	c := *code
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.Used = false
	c.UsedAt = nil
	r.m.codes[c.ID] = c
	return &c, nil
}

func (r *MemoryCodes) FindLatestUnused(_ context.Context, email, codeHash string) (*models.VerificationCode, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var best *models.VerificationCode
	for _, c := range r.m.codes {
		if c.Used || c.Email != email || c.CodeHash != codeHash {
			continue
		}
		if best == nil || c.CreatedAt.After(best.CreatedAt) {
			candidate := c
			best = &candidate
		}
	}
	if best == nil {
		return nil, models.ErrNotFound
	}
	return best, nil
}

func (r *MemoryCodes) MarkUsed(_ context.Context, id string, usedAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	c, ok := r.m.codes[id]
	if !ok || c.Used {
		return models.ErrNotFound
	}
	c.Used = true
	c.UsedAt = &usedAt
	r.m.codes[id] = c
	return nil
}

func (r *MemoryCodes) DeleteUnusedByAccount(_ context.Context, accountID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var n int64
	for id, c := range r.m.codes {
		if c.AccountID == accountID && !c.Used {
			delete(r.m.codes, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryCodes) CleanupExpired(_ context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var n int64
	for id, c := range r.m.codes {
		if c.Used || c.ExpiresAt.Before(now) {
			delete(r.m.codes, id)
			n++
		}
	}
	return n, nil
}

// MemorySessions is the in-memory SessionRepository
type MemorySessions struct{ m *MemoryStore }

func (r *MemorySessions) Create(_ context.Context, session *models.Session) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	return r.insertLocked(session), nil
}

func (r *MemorySessions) insertLocked(session *models.Session) *models.Session {
	s := *session
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.IsActive = true
	s.EndedAt = nil
	s.EndReason = nil
	r.m.sessions[s.ID] = s
	return &s
}

func (r *MemorySessions) CreateExclusive(_ context.Context, session *models.Session) (*models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	now := session.CreatedAt
	reason := models.SessionEndExpired
	for id, s := range r.m.sessions {
		if s.AccountID != session.AccountID || !s.IsActive {
			continue
		}
		if !now.Before(s.ExpiresAt) {
			ended := now
			s.IsActive = false
			s.EndedAt = &ended
			s.EndReason = &reason
			r.m.sessions[id] = s
			continue
		}
		if s.Role == models.RoleAdmin && session.Role == models.RoleAdmin {
			return nil, models.ErrConflict
		}
	}

	return r.insertLocked(session), nil
}

func (r *MemorySessions) GetByID(_ context.Context, id string) (*models.Session, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	s, ok := r.m.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &s, nil
}

func (r *MemorySessions) GetActiveByAccount(_ context.Context, accountID string, now time.Time) (*models.Session, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	live := make([]models.Session, 0)
	for _, s := range r.m.sessions {
		if s.AccountID == accountID && s.IsLive(now) {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		return nil, models.ErrNotFound
	}
	sort.Slice(live, func(i, j int) bool { return live[i].CreatedAt.After(live[j].CreatedAt) })
	return &live[0], nil
}

func (r *MemorySessions) Touch(_ context.Context, id string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if s, ok := r.m.sessions[id]; ok && s.IsActive {
		s.LastActivity = at
		r.m.sessions[id] = s
	}
	return nil
}

func (r *MemorySessions) Deactivate(_ context.Context, id, reason string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	s, ok := r.m.sessions[id]
	if !ok || !s.IsActive {
		return models.ErrNotFound
	}
	r.endLocked(id, s, reason, at)
	return nil
}

func (r *MemorySessions) DeactivateAllForAccount(_ context.Context, accountID, reason string, at time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var n int64
	for id, s := range r.m.sessions {
		if s.AccountID == accountID && s.IsActive {
			r.endLocked(id, s, reason, at)
			n++
		}
	}
	return n, nil
}

func (r *MemorySessions) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var n int64
	for id, s := range r.m.sessions {
		if s.IsActive && !now.Before(s.ExpiresAt) {
			r.endLocked(id, s, models.SessionEndExpired, now)
			n++
		}
	}
	return n, nil
}

func (r *MemorySessions) endLocked(id string, s models.Session, reason string, at time.Time) {
	s.IsActive = false
	s.EndedAt = &at
	s.EndReason = &reason
	r.m.sessions[id] = s
}
