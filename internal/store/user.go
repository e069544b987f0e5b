package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"solidarity/internal/utils"
	"solidarity/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userTableName = "solidarity.users"

var userColumns = utils.StructTagValues(types.User{})

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) User(ctx context.Context, userID int64) (*types.User, error) {
	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user query: %w", err)
	}

	var user types.User
	err = pgxscan.Get(ctx, r.pool, &user, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) UsersByIDs(ctx context.Context, userIDs []int64) ([]*types.User, error) {
	if len(userIDs) == 0 {
		return []*types.User{}, nil
	}

	query, args, err := psql().
		Select(userColumns...).
		From(userTableName).
		Where(sq.Eq{"id": userIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate users-by-ids query: %w", err)
	}

	var users []*types.User
	err = pgxscan.Select(ctx, r.pool, &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users by ids: %w", err)
	}

	return users, nil
}

// UpsertIdentity maps a token subject to a local user row, refreshing the
// contact email from the token claims.
func (r *UserRepository) UpsertIdentity(ctx context.Context, subject, username, email string) (*types.User, error) {
	now := time.Now()

	var emailPtr *string
	trimmedEmail := strings.TrimSpace(email)
	if trimmedEmail != "" {
		emailPtr = &trimmedEmail
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username = subject
	}

	query, args, err := psql().
		Insert(userTableName).
		Columns("subject", "username", "email", "created_at", "updated_at").
		Values(subject, username, emailPtr, now, now).
		Suffix("ON CONFLICT (subject) DO UPDATE SET email = COALESCE(EXCLUDED.email, users.email), updated_at = EXCLUDED.updated_at " + returning(userColumns...)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate upsert identity user query: %w", err)
	}

	var user types.User
	err = pgxscan.Get(ctx, r.pool, &user, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user identity fields: %w", err)
	}

	return &user, nil
}
