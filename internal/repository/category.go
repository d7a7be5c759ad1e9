package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fmmarmello/finAI/internal/finance"
	"github.com/fmmarmello/finAI/internal/models"
)

const categoryColumns = `id, user_id, name, sort_order, created_at`

type CategoryRepository struct {
	db *pgxpool.Pool
}

// NewCategoryRepository создает репозиторий категорий.
func NewCategoryRepository(db *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List возвращает категории пользователя в пользовательском порядке.
func (r *CategoryRepository) List(ctx context.Context, userID uuid.UUID) ([]models.Category, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+categoryColumns+`
		 FROM categories
		 WHERE user_id = $1
		 ORDER BY sort_order, created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}

// Names возвращает только названия категорий.
func (r *CategoryRepository) Names(ctx context.Context, userID uuid.UUID) ([]string, error) {
	categories, err := r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return finance.CategoryNames(categories), nil
}

// Add добавляет категорию в конец списка. Совпадение без учета регистра дает ErrConflict.
func (r *CategoryRepository) Add(ctx context.Context, userID uuid.UUID, name string) (models.Category, error) {
	existing, err := r.Names(ctx, userID)
	if err != nil {
		return models.Category{}, err
	}
	if finance.HasCategory(existing, name) {
		return models.Category{}, ErrConflict
	}

	category, err := scanCategory(r.db.QueryRow(ctx,
		`INSERT INTO categories (user_id, name, sort_order)
		 VALUES ($1, $2, (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM categories WHERE user_id = $1))
		 RETURNING `+categoryColumns,
		userID, name,
	))
	return category, translate(err)
}

// Rename меняет только название в списке категорий. Транзакции и бюджеты
// сохраняют прежнюю метку.
func (r *CategoryRepository) Rename(ctx context.Context, userID, id uuid.UUID, name string) (models.Category, error) {
	categories, err := r.List(ctx, userID)
	if err != nil {
		return models.Category{}, err
	}
	for _, category := range categories {
		if category.ID != id && finance.FoldCategory(category.Name) == finance.FoldCategory(name) {
			return models.Category{}, ErrConflict
		}
	}

	category, err := scanCategory(r.db.QueryRow(ctx,
		`UPDATE categories
		 SET name = $3
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+categoryColumns,
		id, userID, name,
	))
	return category, translate(err)
}

// Delete удаляет категорию из списка.
func (r *CategoryRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Reorder переписывает порядок по полному списку идентификаторов.
func (r *CategoryRepository) Reorder(ctx context.Context, userID uuid.UUID, orderedIDs []uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var total int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM categories WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return err
	}
	if total != len(orderedIDs) {
		return ErrInvalid
	}

	cmd, err := tx.Exec(ctx,
		`UPDATE categories AS c
		 SET sort_order = o.ordinality - 1
		 FROM unnest($2::uuid[]) WITH ORDINALITY AS o(id, ordinality)
		 WHERE c.id = o.id AND c.user_id = $1`,
		userID, orderedIDs,
	)
	if err != nil {
		return err
	}

	if int(cmd.RowsAffected()) != len(orderedIDs) {
		return ErrInvalid
	}

	return tx.Commit(ctx)
}

func seedCategories(ctx context.Context, db execer, userID uuid.UUID) error {
	_, err := db.Exec(ctx,
		`INSERT INTO categories (user_id, name, sort_order)
		 SELECT $1, d.name, d.ordinality - 1
		 FROM unnest($2::text[]) WITH ORDINALITY AS d(name, ordinality)
		 ON CONFLICT (user_id, lower(name)) DO NOTHING`,
		userID, finance.DefaultCategories,
	)
	return err
}

func scanCategory(row pgx.Row) (models.Category, error) {
	var category models.Category
	err := row.Scan(&category.ID, &category.UserID, &category.Name, &category.SortOrder, &category.CreatedAt)
	return category, err
}
