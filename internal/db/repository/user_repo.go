package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/quizset-service/internal/domain"
)

const (
	getUserSQL = `
SELECT user_id, name, email, role
FROM users
WHERE user_id = $1`

	lookupUsersSQL = `
SELECT user_id, name, email, role
FROM users
WHERE user_id = ANY($1::uuid[])`
)

// UserRepository reads the user directory.
type UserRepository struct {
	db DBTX
}

// NewUserRepository wraps db for user lookups.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// GetUser fetches a user by id.
func (r *UserRepository) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	var row userRow
	if err := r.db.QueryRow(ctx, getUserSQL, toPgUUID(id)).Scan(row.dest()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("query user: %w", err)
	}
	return row.toDomain(), nil
}

// LookupUsers returns the directory entries for ids. Unknown ids are absent
// from the result.
func (r *UserRepository) LookupUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.User, error) {
	users := make(map[uuid.UUID]domain.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	rows, err := r.db.Query(ctx, lookupUsersSQL, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row userRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u := row.toDomain()
		users[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

type userRow struct {
	id          pgtype.UUID
	name, email pgtype.Text
	role        string
}

func (r *userRow) dest() []any {
	return []any{&r.id, &r.name, &r.email, &r.role}
}

func (r *userRow) toDomain() domain.User {
	return domain.User{
		ID:    fromPgUUID(r.id),
		Name:  r.name.String,
		Email: r.email.String,
		Role:  r.role,
	}
}
