package repository

import (
	"context"
	"database/sql"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
	"github.com/lib/pq"
)

type RoomRepository struct {
	db *sql.DB
}

var _ ports.RoomRepository = (*RoomRepository)(nil)

func NewRoomRepository(db *sql.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

const roomColumns = "id, name, COALESCE(description, ''), COALESCE(parent_id::text, ''), is_active, COALESCE(custom_alarm_sound, ''), created_at"

func (r *RoomRepository) Create(ctx context.Context, room domain.Room, caretakerIDs []string) (*domain.Room, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rooms (id, name, description, parent_id, is_active, custom_alarm_sound, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''), $7)`,
		room.ID,
		room.Name,
		room.Description,
		room.ParentID,
		room.IsActive,
		room.CustomAlarmSound,
		room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := insertCaretakers(ctx, tx, room.ID, caretakerIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, room.ID)
}

func (r *RoomRepository) Update(ctx context.Context, room domain.Room, caretakerIDs *[]string) (*domain.Room, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE rooms
		 SET name = $2, description = NULLIF($3, ''), parent_id = NULLIF($4, ''),
		     is_active = $5, custom_alarm_sound = NULLIF($6, '')
		 WHERE id = $1`,
		room.ID,
		room.Name,
		room.Description,
		room.ParentID,
		room.IsActive,
		room.CustomAlarmSound,
	)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, domain.ErrNotFound
	}

	if caretakerIDs != nil {
		// Full replacement of the membership set, not a merge.
		_, err = tx.ExecContext(ctx, "DELETE FROM room_user WHERE room_id = $1", room.ID)
		if err != nil {
			return nil, err
		}
		if err := insertCaretakers(ctx, tx, room.ID, *caretakerIDs); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, room.ID)
}

func (r *RoomRepository) Delete(ctx context.Context, roomID string) error {
	// Alarms and room_user rows cascade on the foreign keys.
	res, err := r.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = $1", roomID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RoomRepository) FindByID(ctx context.Context, roomID string) (*domain.Room, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM rooms WHERE id = $1", roomID)
	room, err := scanRoom(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	caretakers, err := r.caretakersForRooms(ctx, []string{room.ID})
	if err != nil {
		return nil, err
	}
	room.Caretakers = caretakers[room.ID]
	if room.Caretakers == nil {
		room.Caretakers = []domain.User{}
	}
	return room, nil
}

func (r *RoomRepository) ListVisible(ctx context.Context, viewer domain.Identity) ([]domain.Room, error) {
	query := "SELECT " + roomColumns + " FROM rooms WHERE is_active = TRUE"
	args := []any{}

	switch viewer.Role {
	case domain.RoleAdmin:
		// Admins see every active room.
	case domain.RoleParent:
		query += " AND parent_id = $1"
		args = append(args, viewer.UserID)
	case domain.RoleCaretaker:
		query += " AND id IN (SELECT room_id FROM room_user WHERE user_id = $1)"
		args = append(args, viewer.UserID)
	default:
		return []domain.Room{}, nil
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.Room
	var ids []string
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
		ids = append(ids, room.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// One membership query for the whole page instead of one per room.
	caretakers, err := r.caretakersForRooms(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		rooms[i].Caretakers = caretakers[rooms[i].ID]
		if rooms[i].Caretakers == nil {
			rooms[i].Caretakers = []domain.User{}
		}
	}
	if rooms == nil {
		rooms = []domain.Room{}
	}
	return rooms, nil
}

func (r *RoomRepository) ReplaceUserRooms(ctx context.Context, userID string, roomIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM room_user WHERE user_id = $1", userID); err != nil {
		return err
	}
	for _, roomID := range roomIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO room_user (room_id, user_id) VALUES ($1, $2)
			 ON CONFLICT (room_id, user_id) DO NOTHING`,
			roomID, userID,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *RoomRepository) ExistAll(ctx context.Context, roomIDs []string) (bool, error) {
	// The count comparison needs a duplicate-free input: a repeated valid
	// id must not read as a missing room.
	ids := uniqueIDs(roomIDs)
	if len(ids) == 0 {
		return true, nil
	}
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT id) FROM rooms WHERE id = ANY($1)",
		pq.Array(ids),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == len(ids), nil
}

// uniqueIDs drops duplicates, preserving first-seen order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}

// caretakersForRooms loads the caretaker membership of several rooms in one
// query, keyed by room id.
func (r *RoomRepository) caretakersForRooms(ctx context.Context, roomIDs []string) (map[string][]domain.User, error) {
	result := make(map[string][]domain.User)
	if len(roomIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT ru.room_id, u.id, u.name, u.username, u.email, u.role, u.is_active, COALESCE(u.fcm_token, ''), u.created_at
		 FROM room_user ru
		 JOIN users u ON u.id = ru.user_id
		 WHERE ru.room_id = ANY($1) AND u.role = $2`,
		pq.Array(roomIDs),
		domain.RoleCaretaker,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var roomID string
		var u domain.User
		err := rows.Scan(&roomID, &u.ID, &u.Name, &u.Username, &u.Email, &u.Role, &u.IsActive, &u.FCMToken, &u.CreatedAt)
		if err != nil {
			return nil, err
		}
		result[roomID] = append(result[roomID], u)
	}
	return result, rows.Err()
}

func insertCaretakers(ctx context.Context, tx *sql.Tx, roomID string, caretakerIDs []string) error {
	for _, userID := range caretakerIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO room_user (room_id, user_id) VALUES ($1, $2)
			 ON CONFLICT (room_id, user_id) DO NOTHING`,
			roomID, userID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*domain.Room, error) {
	var room domain.Room
	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Description,
		&room.ParentID,
		&room.IsActive,
		&room.CustomAlarmSound,
		&room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}
