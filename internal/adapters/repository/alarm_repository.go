package repository

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
	"github.com/google/uuid"
)

type AlarmRepository struct {
	db *sql.DB
}

var _ ports.AlarmRepository = (*AlarmRepository)(nil)

func NewAlarmRepository(db *sql.DB) *AlarmRepository {
	return &AlarmRepository{db: db}
}

const alarmColumns = "id, room_id, parent_id, status, triggered_at, acknowledged_at, COALESCE(acknowledged_by::text, ''), COALESCE(notes, '')"

// Trigger deactivates every active alarm in the room and inserts the new
// active one as a single transaction. The room row is locked first, so two
// concurrent triggers for the same room serialize instead of interleaving;
// the outbox row commits with the alarm or not at all.
func (r *AlarmRepository) Trigger(ctx context.Context, alarm domain.Alarm, outboxPayload []byte) (*domain.Alarm, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var roomID string
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM rooms WHERE id = $1 FOR UPDATE",
		alarm.RoomID,
	).Scan(&roomID)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE alarms SET status = $2 WHERE room_id = $1 AND status = $3",
		alarm.RoomID,
		domain.AlarmInactive,
		domain.AlarmActive,
	)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO alarms (id, room_id, parent_id, status, triggered_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		alarm.ID,
		alarm.RoomID,
		alarm.ParentID,
		alarm.Status,
		alarm.TriggeredAt,
	)
	if err != nil {
		return nil, err
	}

	if err := insertOutboxEvent(ctx, tx, outboxPayload); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, alarm.ID)
}

func (r *AlarmRepository) Acknowledge(ctx context.Context, alarmID, byUserID string, at time.Time, outboxPayload []byte) (*domain.Alarm, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	// The status guard makes the acknowledgement first-writer-wins: a second
	// caller finds no active row and leaves the stored fields untouched.
	row := tx.QueryRowContext(ctx,
		`UPDATE alarms
		 SET status = $2, acknowledged_at = $3, acknowledged_by = $4
		 WHERE id = $1 AND status = $5
		 RETURNING `+alarmColumns,
		alarmID,
		domain.AlarmAcknowledged,
		at,
		byUserID,
		domain.AlarmActive,
	)

	alarm, err := scanAlarm(row)
	if err == sql.ErrNoRows {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			return nil, false, err
		}
		current, err := r.FindByID(ctx, alarmID)
		if err != nil {
			return nil, false, err
		}
		return current, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if err := insertOutboxEvent(ctx, tx, outboxPayload); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return alarm, true, nil
}

func (r *AlarmRepository) Reset(ctx context.Context, alarmID string) (*domain.Alarm, error) {
	row := r.db.QueryRowContext(ctx,
		"UPDATE alarms SET status = $2 WHERE id = $1 RETURNING "+alarmColumns,
		alarmID,
		domain.AlarmInactive,
	)
	alarm, err := scanAlarm(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return alarm, nil
}

func (r *AlarmRepository) FindByID(ctx context.Context, alarmID string) (*domain.Alarm, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+alarmColumns+" FROM alarms WHERE id = $1", alarmID)
	alarm, err := scanAlarm(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return alarm, nil
}

func (r *AlarmRepository) ListVisible(ctx context.Context, viewer domain.Identity, status *domain.AlarmStatus) ([]domain.Alarm, error) {
	query := "SELECT " + alarmColumns + " FROM alarms"
	where := []string{}
	args := []any{}

	switch viewer.Role {
	case domain.RoleAdmin:
		// No role restriction.
	case domain.RoleParent:
		args = append(args, viewer.UserID)
		where = append(where, "parent_id = $1")
	case domain.RoleCaretaker:
		args = append(args, viewer.UserID)
		where = append(where, "room_id IN (SELECT room_id FROM room_user WHERE user_id = $1)")
	default:
		return []domain.Alarm{}, nil
	}

	if status != nil {
		args = append(args, *status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}

	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY triggered_at DESC, id DESC"

	return r.queryAlarms(ctx, query, args...)
}

func (r *AlarmRepository) ActiveForCaretaker(ctx context.Context, userID string) ([]domain.Alarm, error) {
	return r.queryAlarms(ctx,
		`SELECT `+alarmColumns+` FROM alarms
		 WHERE status = $2
		   AND room_id IN (SELECT room_id FROM room_user WHERE user_id = $1)
		 ORDER BY triggered_at DESC, id DESC`,
		userID,
		domain.AlarmActive,
	)
}

func (r *AlarmRepository) queryAlarms(ctx context.Context, query string, args ...any) ([]domain.Alarm, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alarms := []domain.Alarm{}
	for rows.Next() {
		alarm, err := scanAlarm(rows)
		if err != nil {
			return nil, err
		}
		alarms = append(alarms, *alarm)
	}
	return alarms, rows.Err()
}

func insertOutboxEvent(ctx context.Context, tx *sql.Tx, payload []byte) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO outbox_events (id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, NOW())`,
		uuid.NewString(),
		ports.PushEventType,
		payload,
	)
	return err
}

func scanAlarm(row rowScanner) (*domain.Alarm, error) {
	var alarm domain.Alarm
	var acknowledgedAt sql.NullTime
	err := row.Scan(
		&alarm.ID,
		&alarm.RoomID,
		&alarm.ParentID,
		&alarm.Status,
		&alarm.TriggeredAt,
		&acknowledgedAt,
		&alarm.AcknowledgedBy,
		&alarm.Notes,
	)
	if err != nil {
		return nil, err
	}
	if acknowledgedAt.Valid {
		t := acknowledgedAt.Time
		alarm.AcknowledgedAt = &t
	}
	return &alarm, nil
}
