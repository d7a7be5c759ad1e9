package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fmmarmello/finAI/internal/models"
)

const userColumns = `id, email, password_hash, name, currency, created_at, updated_at`

type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository создает репозиторий пользователей.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create регистрирует пользователя и выдает ему стандартные категории
// в одной транзакции БД. Занятый email дает ErrConflict.
func (r *UserRepository) Create(ctx context.Context, email, passwordHash string, name *string, currency string) (models.User, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return models.User{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	user, err := scanUser(tx.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, name, currency)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		email, passwordHash, name, currency,
	))
	if err != nil {
		return models.User{}, translate(err)
	}

	if err := seedCategories(ctx, tx, user.ID); err != nil {
		return models.User{}, fmt.Errorf("seed categories: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.User{}, err
	}

	return user, nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	return user, translate(err)
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return user, translate(err)
}

// UpdateProfile меняет имя и валюту отображения.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, currency *string) (models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx,
		`UPDATE users
		 SET name = COALESCE($2, name),
		     currency = COALESCE($3, currency),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, name, currency,
	))
	return user, translate(err)
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Currency, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}
