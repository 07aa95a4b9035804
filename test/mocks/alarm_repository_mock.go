package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
)

// MockAlarmRepository implements ports.AlarmRepository with map storage.
// Trigger and Acknowledge mirror the transactional guarantees of the real
// repository under one mutex, so the concurrency properties of the engine
// can be exercised without Postgres.
type MockAlarmRepository struct {
	mu sync.RWMutex

	alarms map[string]*domain.Alarm
	// roomCaretakers maps room id -> caretaker user ids, mirroring room_user.
	roomCaretakers map[string]map[string]bool

	// Call tracking for verification
	TriggerCalls   []domain.Alarm
	AckCalls       []string
	ResetCalls     []string
	OutboxPayloads [][]byte

	// Error injection for testing error scenarios
	TriggerError     error
	AcknowledgeError error
	ResetError       error
	FindByIDError    error
	ListVisibleError error

	// AcknowledgeHook, when set, runs before the acknowledgement is
	// applied, so tests can interleave a concurrent state change.
	AcknowledgeHook func()
}

var _ ports.AlarmRepository = (*MockAlarmRepository)(nil)

func NewMockAlarmRepository() *MockAlarmRepository {
	return &MockAlarmRepository{
		alarms:         make(map[string]*domain.Alarm),
		roomCaretakers: make(map[string]map[string]bool),
	}
}

// SeedAlarm adds an alarm for test setup.
func (m *MockAlarmRepository) SeedAlarm(alarm domain.Alarm) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alarms[alarm.ID] = &alarm
}

// AssignCaretaker records a room_user row for caretaker visibility filters.
func (m *MockAlarmRepository) AssignCaretaker(roomID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roomCaretakers[roomID] == nil {
		m.roomCaretakers[roomID] = make(map[string]bool)
	}
	m.roomCaretakers[roomID][userID] = true
}

func (m *MockAlarmRepository) Trigger(ctx context.Context, alarm domain.Alarm, outboxPayload []byte) (*domain.Alarm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TriggerCalls = append(m.TriggerCalls, alarm)
	if m.TriggerError != nil {
		return nil, m.TriggerError
	}

	// Same atomic step as the SQL transaction: everything active in the
	// room goes inactive before the new alarm lands.
	for _, existing := range m.alarms {
		if existing.RoomID == alarm.RoomID && existing.Status == domain.AlarmActive {
			existing.Status = domain.AlarmInactive
		}
	}
	m.alarms[alarm.ID] = &alarm
	m.OutboxPayloads = append(m.OutboxPayloads, outboxPayload)
	stored := alarm
	return &stored, nil
}

func (m *MockAlarmRepository) Acknowledge(ctx context.Context, alarmID, byUserID string, at time.Time, outboxPayload []byte) (*domain.Alarm, bool, error) {
	if m.AcknowledgeHook != nil {
		m.AcknowledgeHook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.AckCalls = append(m.AckCalls, alarmID)
	if m.AcknowledgeError != nil {
		return nil, false, m.AcknowledgeError
	}

	alarm, ok := m.alarms[alarmID]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	if alarm.Status != domain.AlarmActive {
		stored := *alarm
		return &stored, false, nil
	}

	alarm.Status = domain.AlarmAcknowledged
	ackAt := at
	alarm.AcknowledgedAt = &ackAt
	alarm.AcknowledgedBy = byUserID
	m.OutboxPayloads = append(m.OutboxPayloads, outboxPayload)
	stored := *alarm
	return &stored, true, nil
}

func (m *MockAlarmRepository) Reset(ctx context.Context, alarmID string) (*domain.Alarm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ResetCalls = append(m.ResetCalls, alarmID)
	if m.ResetError != nil {
		return nil, m.ResetError
	}

	alarm, ok := m.alarms[alarmID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	alarm.Status = domain.AlarmInactive
	stored := *alarm
	return &stored, nil
}

func (m *MockAlarmRepository) FindByID(ctx context.Context, alarmID string) (*domain.Alarm, error) {
	if m.FindByIDError != nil {
		return nil, m.FindByIDError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	alarm, ok := m.alarms[alarmID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	stored := *alarm
	return &stored, nil
}

func (m *MockAlarmRepository) ListVisible(ctx context.Context, viewer domain.Identity, status *domain.AlarmStatus) ([]domain.Alarm, error) {
	if m.ListVisibleError != nil {
		return nil, m.ListVisibleError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []domain.Alarm{}
	for _, alarm := range m.alarms {
		visible := false
		switch viewer.Role {
		case domain.RoleAdmin:
			visible = true
		case domain.RoleParent:
			visible = alarm.ParentID == viewer.UserID
		case domain.RoleCaretaker:
			visible = m.roomCaretakers[alarm.RoomID][viewer.UserID]
		}
		if !visible {
			continue
		}
		if status != nil && alarm.Status != *status {
			continue
		}
		result = append(result, *alarm)
	}
	sortAlarms(result)
	return result, nil
}

func (m *MockAlarmRepository) ActiveForCaretaker(ctx context.Context, userID string) ([]domain.Alarm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []domain.Alarm{}
	for _, alarm := range m.alarms {
		if alarm.Status == domain.AlarmActive && m.roomCaretakers[alarm.RoomID][userID] {
			result = append(result, *alarm)
		}
	}
	sortAlarms(result)
	return result, nil
}

// ActiveCountForRoom reports how many alarms are active in the room, for
// asserting the one-active-alarm invariant.
func (m *MockAlarmRepository) ActiveCountForRoom(roomID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, alarm := range m.alarms {
		if alarm.RoomID == roomID && alarm.Status == domain.AlarmActive {
			count++
		}
	}
	return count
}

// sortAlarms orders newest trigger first, id descending on ties, matching
// the repository ORDER BY.
func sortAlarms(alarms []domain.Alarm) {
	sort.Slice(alarms, func(i, j int) bool {
		if !alarms[i].TriggeredAt.Equal(alarms[j].TriggeredAt) {
			return alarms[i].TriggeredAt.After(alarms[j].TriggeredAt)
		}
		return alarms[i].ID > alarms[j].ID
	})
}
