package repository

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/entity"
)

// NewMemoryStore returns repositories held in process memory, with the same semantics as the SQL
// store. Values are cloned on the way in and out so callers never alias stored state.
func NewMemoryStore() Store {
	return Store{
		Regulations:   &memoryRegulations{rows: map[string]*entity.Regulation{}},
		Users:         &memoryUsers{rows: map[string]*entity.User{}},
		Notifications: &memoryNotifications{rows: map[string]*entity.Notification{}},
	}
}

type memoryRegulations struct {
	mu   sync.RWMutex
	rows map[string]*entity.Regulation
}

func (m *memoryRegulations) Create(_ context.Context, reg *entity.Regulation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[reg.ID]; ok {
		return common.ConflictError(reg.ID)
	}
	reg.Revision = 1
	m.rows[reg.ID] = reg.Clone()
	return nil
}

func (m *memoryRegulations) Get(_ context.Context, id string) (*entity.Regulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reg, ok := m.rows[id]
	if !ok {
		return nil, common.NewNotFoundError("regulation", id)
	}
	return reg.Clone(), nil
}

func (m *memoryRegulations) List(_ context.Context) ([]*entity.Regulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*entity.Regulation, 0, len(m.rows))
	for _, reg := range m.rows {
		out = append(out, reg.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUpdated.Equal(out[j].LastUpdated) {
			return out[i].LastUpdated.After(out[j].LastUpdated)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryRegulations) Update(_ context.Context, reg *entity.Regulation, expectedRevision int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[reg.ID]
	if !ok {
		return common.NewNotFoundError("regulation", reg.ID)
	}
	if cur.Revision != expectedRevision {
		return common.ConflictError(reg.ID)
	}
	stored := reg.Clone()
	stored.Revision = expectedRevision + 1
	m.rows[reg.ID] = stored
	reg.Revision = stored.Revision
	return nil
}

func (m *memoryRegulations) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return common.NewNotFoundError("regulation", id)
	}
	delete(m.rows, id)
	return nil
}

type memoryUsers struct {
	mu   sync.RWMutex
	rows map[string]*entity.User
}

func (m *memoryUsers) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.rows {
		if other.Username == u.Username {
			return usernameTaken(u.Username)
		}
	}
	cp := *u
	m.rows[u.ID] = &cp
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, common.NewNotFoundError("user", id)
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.rows {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.NewNotFoundError("user", username)
}

func (m *memoryUsers) List(_ context.Context) ([]*entity.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*entity.User, 0, len(m.rows))
	for _, u := range m.rows {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memoryUsers) Update(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[u.ID]; !ok {
		return common.NewNotFoundError("user", u.ID)
	}
	for _, other := range m.rows {
		if other.Username == u.Username && other.ID != u.ID {
			return usernameTaken(u.Username)
		}
	}
	cp := *u
	m.rows[u.ID] = &cp
	return nil
}

func (m *memoryUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return common.NewNotFoundError("user", id)
	}
	delete(m.rows, id)
	return nil
}

type memoryNotifications struct {
	mu   sync.RWMutex
	rows map[string]*entity.Notification
}

func cloneNotification(n *entity.Notification) *entity.Notification {
	cp := *n
	cp.SeenBy = slices.Clone(n.SeenBy)
	if cp.SeenBy == nil {
		cp.SeenBy = []string{}
	}
	return &cp
}

func (m *memoryNotifications) Create(_ context.Context, n *entity.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[n.ID] = cloneNotification(n)
	return nil
}

func (m *memoryNotifications) Get(_ context.Context, id string) (*entity.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.rows[id]
	if !ok {
		return nil, common.NewNotFoundError("notification", id)
	}
	return cloneNotification(n), nil
}

func (m *memoryNotifications) List(_ context.Context) ([]*entity.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*entity.Notification, 0, len(m.rows))
	for _, n := range m.rows {
		out = append(out, cloneNotification(n))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memoryNotifications) MarkSeen(_ context.Context, id, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok {
		return common.NewNotFoundError("notification", id)
	}
	if !slices.Contains(n.SeenBy, username) {
		n.SeenBy = append(n.SeenBy, username)
		sort.Strings(n.SeenBy)
	}
	return nil
}
