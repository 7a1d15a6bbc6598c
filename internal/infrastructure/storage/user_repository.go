package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/ports"
)

const uniqueViolation = "23505"

var userColumns = []string{"id", "email", "password_hash", "role"}

// UserRepository stores API accounts.
type UserRepository struct {
	db *sqlx.DB
}

var _ ports.UserRepository = (*UserRepository)(nil)

// NewUserRepository wires a sqlx.DB implementation.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts user and returns its id. A taken email yields domain.ErrUserExists.
func (r *UserRepository) CreateUser(ctx context.Context, user domain.User) (int64, error) {
	query := `INSERT INTO users (email, password_hash, role) VALUES ($1, $2, $3) RETURNING id`

	var id int64
	err := r.db.QueryRowxContext(ctx, query, user.Email, user.PasswordHash, string(user.Role)).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, domain.ErrUserExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// FindUserByEmail looks an account up by its exact email.
func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	query, args, err := psql.Select(userColumns...).From(usersTable).Where(sq.Eq{"email": email}).ToSql()
	if err != nil {
		return domain.User{}, fmt.Errorf("build user query: %w", err)
	}

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// DeleteUser removes the account with id.
func (r *UserRepository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// FindUsers pages through accounts, newest first.
func (r *UserRepository) FindUsers(ctx context.Context, filter domain.UserFilter, page, pageSize int) (domain.UserPage, error) {
	result := domain.UserPage{PageNumber: page, PageSize: pageSize}

	countQuery, countArgs, err := applyUserFilter(psql.Select("COUNT(*)").From(usersTable), filter).ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := r.db.GetContext(ctx, &result.TotalCount, countQuery, countArgs...); err != nil {
		return result, fmt.Errorf("count users: %w", err)
	}

	query, args, err := applyUserFilter(psql.Select(userColumns...).From(usersTable), filter).
		OrderBy("id DESC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build page query: %w", err)
	}
	if err := r.db.SelectContext(ctx, &result.Items, query, args...); err != nil {
		return result, fmt.Errorf("select users: %w", err)
	}
	return result, nil
}

func applyUserFilter(b sq.SelectBuilder, f domain.UserFilter) sq.SelectBuilder {
	if f.Email != nil && strings.TrimSpace(*f.Email) != "" {
		b = b.Where(sq.ILike{"email": containsPattern(strings.TrimSpace(*f.Email))})
	}
	if f.Role != nil {
		b = b.Where(sq.Eq{"role": string(*f.Role)})
	}
	return b
}
