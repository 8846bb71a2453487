package mock

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	UserRepo   *mockUserRepo
	TokenRepo  *mockTokenRepo
	NotifyRepo *mockNotificationRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		UserRepo:   &mockUserRepo{byID: map[int64]*models.User{}},
		TokenRepo:  &mockTokenRepo{tokens: map[string]*models.RefreshToken{}},
		NotifyRepo: &mockNotificationRepo{},
	}
}

var _ repository.UserRepo = (*mockUserRepo)(nil)
var _ repository.TokenRepo = (*mockTokenRepo)(nil)
var _ repository.NotificationRepo = (*mockNotificationRepo)(nil)

type mockUserRepo struct {
	mu        sync.Mutex
	byID      map[int64]*models.User
	nextID    int64
	CreateErr error
	GetErr    error
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	for _, existing := range m.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return 0, repository.ErrConflict
		}
	}
	m.nextID++
	stored := *u
	stored.ID = m.nextID
	if stored.Role == "" {
		stored.Role = models.RoleUser
	}
	stored.IsActive = true
	m.byID[stored.ID] = &stored
	return stored.ID, nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockUserRepo) TouchLastLogin(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		ts := int64(1)
		u.LastLogin = &ts
	}
	return nil
}

func (m *mockUserRepo) SetCVParsed(ctx context.Context, id int64, cv json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.CVParsed = cv
	return nil
}

func (m *mockUserRepo) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

type mockTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
	resets []models.PasswordReset
}

func (m *mockTokenRepo) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = int64(len(m.tokens) + 1)
	cp := *t
	m.tokens[t.TokenHash] = &cp
	return nil
}

func (m *mockTokenRepo) GetRefreshToken(ctx context.Context, hash string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[hash]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (m *mockTokenRepo) DeleteRefreshToken(ctx context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, hash)
	return nil
}

func (m *mockTokenRepo) DeleteUserRefreshTokens(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, h)
		}
	}
	return nil
}

// TokenCount reports how many refresh tokens are stored.
func (m *mockTokenRepo) TokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

func (m *mockTokenRepo) CreatePasswordReset(ctx context.Context, pr *models.PasswordReset) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pr
	cp.ID = int64(len(m.resets) + 1)
	m.resets = append(m.resets, cp)
	return cp.ID, nil
}

func (m *mockTokenRepo) GetActivePasswordReset(ctx context.Context, userID int64, now int64) (*models.PasswordReset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.resets) - 1; i >= 0; i-- {
		pr := m.resets[i]
		if pr.UserID == userID && !pr.Used && pr.ExpiresAt > now {
			return &pr, nil
		}
	}
	return nil, nil
}

func (m *mockTokenRepo) MarkPasswordResetUsed(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.resets {
		if m.resets[i].ID == id {
			m.resets[i].Used = true
			return nil
		}
	}
	return repository.ErrNotFound
}

type mockNotificationRepo struct {
	mu        sync.Mutex
	Created   []models.Notification
	CreateErr error
}

func (m *mockNotificationRepo) CreateNotification(ctx context.Context, n *models.Notification) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	cp := *n
	cp.ID = int64(len(m.Created) + 1)
	m.Created = append(m.Created, cp)
	return cp.ID, nil
}

func (m *mockNotificationRepo) find(userID, id int64) *models.Notification {
	for i := range m.Created {
		if m.Created[i].ID == id && m.Created[i].UserID == userID {
			return &m.Created[i]
		}
	}
	return nil
}

func (m *mockNotificationRepo) GetNotification(ctx context.Context, id int64) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Created {
		if m.Created[i].ID == id {
			cp := m.Created[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockNotificationRepo) ListNotifications(ctx context.Context, userID int64, f models.NotificationFilter) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.Created {
		if n.UserID == userID && (f.IncludeRead || !n.IsRead) && (f.IncludeArchived || !n.IsArchived) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, x := range m.Created {
		if x.UserID == userID && !x.IsRead && !x.IsArchived {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, userID, id int64, at int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.find(userID, id)
	if n == nil {
		return repository.ErrNotFound
	}
	n.IsRead = true
	n.ReadAt = &at
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID int64, at int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int64
	for i := range m.Created {
		if m.Created[i].UserID == userID && !m.Created[i].IsRead {
			m.Created[i].IsRead = true
			changed++
		}
	}
	return changed, nil
}

func (m *mockNotificationRepo) Archive(ctx context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.find(userID, id)
	if n == nil {
		return repository.ErrNotFound
	}
	n.IsArchived = true
	return nil
}

func (m *mockNotificationRepo) DeleteNotification(ctx context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Created {
		if m.Created[i].ID == id && m.Created[i].UserID == userID {
			m.Created = append(m.Created[:i], m.Created[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}
