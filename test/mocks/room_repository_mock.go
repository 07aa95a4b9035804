// Package mocks provides in-memory implementations of the port interfaces
// for testing. Services depend on the interfaces only, so these stand in for
// Postgres, Redis and RabbitMQ without any infrastructure.
package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
)

// MockRoomRepository implements ports.RoomRepository with map storage.
// Caretaker users must be seeded with SeedCaretaker before membership
// operations can resolve them.
type MockRoomRepository struct {
	mu sync.RWMutex

	rooms      map[string]*domain.Room
	caretakers map[string]domain.User

	// Call tracking for verification
	CreateCalls           []domain.Room
	UpdateCalls           []domain.Room
	DeleteCalls           []string
	ReplaceUserRoomsCalls [][]string

	// Error injection for testing error scenarios
	CreateError           error
	UpdateError           error
	DeleteError           error
	FindByIDError         error
	ListVisibleError      error
	ReplaceUserRoomsError error
	ExistAllError         error
}

var _ ports.RoomRepository = (*MockRoomRepository)(nil)

func NewMockRoomRepository() *MockRoomRepository {
	return &MockRoomRepository{
		rooms:      make(map[string]*domain.Room),
		caretakers: make(map[string]domain.User),
	}
}

// SeedRoom adds a room for test setup.
func (m *MockRoomRepository) SeedRoom(room domain.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room.Caretakers == nil {
		room.Caretakers = []domain.User{}
	}
	m.rooms[room.ID] = &room
}

// SeedCaretaker registers a caretaker user so membership syncs can resolve it.
func (m *MockRoomRepository) SeedCaretaker(user domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caretakers[user.ID] = user
}

func (m *MockRoomRepository) Create(ctx context.Context, room domain.Room, caretakerIDs []string) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls = append(m.CreateCalls, room)
	if m.CreateError != nil {
		return nil, m.CreateError
	}

	room.Caretakers = m.resolveCaretakers(caretakerIDs)
	m.rooms[room.ID] = &room
	stored := room
	return &stored, nil
}

func (m *MockRoomRepository) Update(ctx context.Context, room domain.Room, caretakerIDs *[]string) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls = append(m.UpdateCalls, room)
	if m.UpdateError != nil {
		return nil, m.UpdateError
	}

	existing, ok := m.rooms[room.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	room.Caretakers = existing.Caretakers
	if caretakerIDs != nil {
		room.Caretakers = m.resolveCaretakers(*caretakerIDs)
	}
	m.rooms[room.ID] = &room
	stored := room
	return &stored, nil
}

func (m *MockRoomRepository) Delete(ctx context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, roomID)
	if m.DeleteError != nil {
		return m.DeleteError
	}
	if _, ok := m.rooms[roomID]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rooms, roomID)
	return nil
}

func (m *MockRoomRepository) FindByID(ctx context.Context, roomID string) (*domain.Room, error) {
	if m.FindByIDError != nil {
		return nil, m.FindByIDError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *room
	copied.Caretakers = append([]domain.User{}, room.Caretakers...)
	return &copied, nil
}

func (m *MockRoomRepository) ListVisible(ctx context.Context, viewer domain.Identity) ([]domain.Room, error) {
	if m.ListVisibleError != nil {
		return nil, m.ListVisibleError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []domain.Room{}
	for _, room := range m.rooms {
		if !room.IsActive {
			continue
		}
		visible := false
		switch viewer.Role {
		case domain.RoleAdmin:
			visible = true
		case domain.RoleParent:
			visible = room.ParentID == viewer.UserID
		case domain.RoleCaretaker:
			visible = room.HasCaretaker(viewer.UserID)
		}
		if visible {
			copied := *room
			copied.Caretakers = append([]domain.User{}, room.Caretakers...)
			result = append(result, copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (m *MockRoomRepository) ReplaceUserRooms(ctx context.Context, userID string, roomIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReplaceUserRoomsCalls = append(m.ReplaceUserRoomsCalls, append([]string{userID}, roomIDs...))
	if m.ReplaceUserRoomsError != nil {
		return m.ReplaceUserRoomsError
	}

	user, ok := m.caretakers[userID]
	if !ok {
		return domain.ErrNotFound
	}

	assigned := make(map[string]bool, len(roomIDs))
	for _, id := range roomIDs {
		assigned[id] = true
	}
	for id, room := range m.rooms {
		kept := []domain.User{}
		for _, c := range room.Caretakers {
			if c.ID != userID {
				kept = append(kept, c)
			}
		}
		if assigned[id] {
			kept = append(kept, user)
		}
		room.Caretakers = kept
	}
	return nil
}

func (m *MockRoomRepository) ExistAll(ctx context.Context, roomIDs []string) (bool, error) {
	if m.ExistAllError != nil {
		return false, m.ExistAllError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range roomIDs {
		if _, ok := m.rooms[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (m *MockRoomRepository) resolveCaretakers(caretakerIDs []string) []domain.User {
	users := []domain.User{}
	for _, id := range caretakerIDs {
		if u, ok := m.caretakers[id]; ok {
			users = append(users, u)
		}
	}
	return users
}
