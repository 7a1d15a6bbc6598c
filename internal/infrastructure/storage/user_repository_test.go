package storage_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"HeroScanner/internal/domain"
	"HeroScanner/internal/infrastructure/storage"
)

func TestUserRepository_CreateUser(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewUserRepository(db)

	insert := regexp.QuoteMeta("INSERT INTO users (email, password_hash, role) VALUES ($1, $2, $3) RETURNING id")
	mock.ExpectQuery(insert).
		WithArgs("admin@example.com", "hash", "admin").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(insert).
		WithArgs("admin@example.com", "hash", "admin").
		WillReturnError(&pq.Error{Code: "23505"})

	user := domain.User{Email: "admin@example.com", PasswordHash: "hash", Role: domain.RoleAdmin}
	id, err := repo.CreateUser(context.Background(), user)
	if err != nil || id != 7 {
		t.Fatalf("CreateUser() = %d, %v", id, err)
	}

	if _, err := repo.CreateUser(context.Background(), user); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	verify(t, mock)
}

func TestUserRepository_FindUserByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewUserRepository(db)

	query := regexp.QuoteMeta("SELECT id, email, password_hash, role FROM users WHERE email = $1")
	mock.ExpectQuery(query).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role"}).
			AddRow(int64(3), "a@example.com", "hash", "user"))
	mock.ExpectQuery(query).
		WithArgs("missing@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role"}))

	user, err := repo.FindUserByEmail(context.Background(), "a@example.com")
	if err != nil {
		t.Fatalf("FindUserByEmail() error = %v", err)
	}
	if user.ID != 3 || user.Role != domain.RoleUser || user.PasswordHash != "hash" {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := repo.FindUserByEmail(context.Background(), "missing@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	verify(t, mock)
}

func TestUserRepository_DeleteUser(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewUserRepository(db)

	del := regexp.QuoteMeta("DELETE FROM users WHERE id = $1")
	mock.ExpectExec(del).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(del).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteUser(context.Background(), 4); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if err := repo.DeleteUser(context.Background(), 5); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	verify(t, mock)
}

func TestUserRepository_FindUsers(t *testing.T) {
	db, mock := newMock(t)
	repo := storage.NewUserRepository(db)

	email := "example"
	role := domain.RoleAdmin
	filter := domain.UserFilter{Email: &email, Role: &role}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE email ILIKE $1 AND role = $2")).
		WithArgs("%example%", "admin").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, email, password_hash, role FROM users WHERE email ILIKE $1 AND role = $2 ORDER BY id DESC LIMIT 10 OFFSET 10")).
		WithArgs("%example%", "admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role"}).
			AddRow(int64(1), "admin@example.com", "hash", "admin"))

	page, err := repo.FindUsers(context.Background(), filter, 2, 10)
	if err != nil {
		t.Fatalf("FindUsers() error = %v", err)
	}
	if page.TotalCount != 1 || len(page.Items) != 1 || page.Items[0].Role != domain.RoleAdmin {
		t.Fatalf("unexpected page %+v", page)
	}
	verify(t, mock)
}
