package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/authapi/internal/models"
)

// MemoryStore keeps accounts in process memory. Uniqueness of email and
// username is enforced under the write lock.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[int64]*models.Account
	seq      int64
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: map[int64]*models.Account{}, seq: 1, now: time.Now}
}

func (m *MemoryStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return m.findFirst(func(a *models.Account) bool { return a.Email == email }), nil
}

func (m *MemoryStore) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	return m.findFirst(func(a *models.Account) bool { return a.Username == username }), nil
}

func (m *MemoryStore) FindByEmailOrUsername(ctx context.Context, identifier string) (*models.Account, error) {
	return m.findFirst(func(a *models.Account) bool {
		return a.Email == identifier || a.Username == identifier
	}), nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.accounts[id]; ok {
		return clone(a), nil
	}
	return nil, nil
}

func (m *MemoryStore) List(ctx context.Context, skip, limit int) ([]*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.sorted()
	if skip >= len(all) {
		return []*models.Account{}, nil
	}
	all = all[skip:]
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]*models.Account, 0, len(all))
	for _, a := range all {
		out = append(out, clone(a))
	}
	return out, nil
}

func (m *MemoryStore) Create(ctx context.Context, in models.NewAccount) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taken(0, &in.Email, &in.Username) {
		return nil, ErrConflict
	}
	now := m.now().UTC()
	a := &models.Account{
		ID:           m.seq,
		Email:        in.Email,
		Username:     in.Username,
		FullName:     copyString(in.FullName),
		PasswordHash: in.PasswordHash,
		IsActive:     in.IsActive,
		IsSuperuser:  in.IsSuperuser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.seq++
	m.accounts[a.ID] = a
	return clone(a), nil
}

func (m *MemoryStore) Update(ctx context.Context, id int64, patch models.AccountPatch) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.taken(id, patch.Email, patch.Username) {
		return nil, ErrConflict
	}
	if patch.Email != nil {
		a.Email = *patch.Email
	}
	if patch.Username != nil {
		a.Username = *patch.Username
	}
	if patch.FullName != nil {
		a.FullName = copyString(patch.FullName)
	}
	if patch.PasswordHash != nil {
		a.PasswordHash = *patch.PasswordHash
	}
	if patch.IsActive != nil {
		a.IsActive = *patch.IsActive
	}
	a.UpdatedAt = m.now().UTC()
	return clone(a), nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.accounts, id)
	return clone(a), nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }
func (m *MemoryStore) Close() error                   { return nil }

func (m *MemoryStore) findFirst(match func(*models.Account) bool) *models.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.sorted() {
		if match(a) {
			return clone(a)
		}
	}
	return nil
}

// taken reports whether email or username belongs to an account other than
// self. Callers hold the lock.
func (m *MemoryStore) taken(self int64, email, username *string) bool {
	for id, a := range m.accounts {
		if id == self {
			continue
		}
		if email != nil && a.Email == *email {
			return true
		}
		if username != nil && a.Username == *username {
			return true
		}
	}
	return false
}

func (m *MemoryStore) sorted() []*models.Account {
	all := make([]*models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// clone detaches a stored account from the caller.
func clone(a *models.Account) *models.Account {
	c := *a
	c.FullName = copyString(a.FullName)
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
