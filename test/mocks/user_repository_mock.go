package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
)

// MockUserRepository implements ports.UserRepository with map storage.
type MockUserRepository struct {
	mu sync.RWMutex

	users map[string]*domain.User
	// roomAssignments maps room id -> assigned user ids, mirroring room_user.
	roomAssignments map[string]map[string]bool

	// Call tracking for verification
	FindByIDCalls []string

	// Error injection for testing error scenarios
	FindByIDError  error
	FindByIDsError error
	ListError      error
	TokensError    error
}

var _ ports.UserRepository = (*MockUserRepository)(nil)

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:           make(map[string]*domain.User),
		roomAssignments: make(map[string]map[string]bool),
	}
}

// SeedUser adds a user for test setup.
func (m *MockUserRepository) SeedUser(user domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = &user
}

// AssignToRoom records a room_user row for token lookups.
func (m *MockUserRepository) AssignToRoom(roomID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roomAssignments[roomID] == nil {
		m.roomAssignments[roomID] = make(map[string]bool)
	}
	m.roomAssignments[roomID][userID] = true
}

func (m *MockUserRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	m.mu.Lock()
	m.FindByIDCalls = append(m.FindByIDCalls, userID)
	m.mu.Unlock()

	if m.FindByIDError != nil {
		return nil, m.FindByIDError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	stored := *user
	return &stored, nil
}

func (m *MockUserRepository) FindByIDs(ctx context.Context, userIDs []string) ([]domain.User, error) {
	if m.FindByIDsError != nil {
		return nil, m.FindByIDsError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	users := []domain.User{}
	for _, id := range userIDs {
		if u, ok := m.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (m *MockUserRepository) List(ctx context.Context) ([]domain.User, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	users := []domain.User{}
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, nil
}

func (m *MockUserRepository) ActiveCaretakerTokens(ctx context.Context, roomID string) ([]string, error) {
	if m.TokensError != nil {
		return nil, m.TokensError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	tokens := []string{}
	for userID := range m.roomAssignments[roomID] {
		u, ok := m.users[userID]
		if !ok {
			continue
		}
		if u.Role == domain.RoleCaretaker && u.IsActive && u.FCMToken != "" {
			tokens = append(tokens, u.FCMToken)
		}
	}
	return tokens, nil
}
