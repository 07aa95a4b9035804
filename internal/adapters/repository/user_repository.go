package repository

import (
	"context"
	"database/sql"

	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/domain"
	"github.com/AchilleasB/baby-kliniek/alarm-service/internal/core/ports"
	"github.com/lib/pq"
)

type UserRepository struct {
	db *sql.DB
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, name, username, email, role, is_active, COALESCE(fcm_token, ''), created_at"

func (r *UserRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1",
		userID,
	).Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Role, &u.IsActive, &u.FCMToken, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByIDs(ctx context.Context, userIDs []string) ([]domain.User, error) {
	if len(userIDs) == 0 {
		return []domain.User{}, nil
	}
	return r.queryUsers(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ANY($1)",
		pq.Array(userIDs),
	)
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	return r.queryUsers(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
}

func (r *UserRepository) ActiveCaretakerTokens(ctx context.Context, roomID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.fcm_token
		 FROM users u
		 JOIN room_user ru ON ru.user_id = u.id
		 WHERE ru.room_id = $1
		   AND u.role = $2
		   AND u.is_active = TRUE
		   AND COALESCE(u.fcm_token, '') <> ''`,
		roomID,
		domain.RoleCaretaker,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var u domain.User
		err := rows.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Role, &u.IsActive, &u.FCMToken, &u.CreatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
