package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fmmarmello/finAI/internal/models"
)

const templateColumns = `id, user_id, name, category, created_at, updated_at`

type TemplateRepository struct {
	db *pgxpool.Pool
}

// NewTemplateRepository создает репозиторий шаблонов расходов.
func NewTemplateRepository(db *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// List возвращает шаблоны пользователя по имени.
func (r *TemplateRepository) List(ctx context.Context, userID uuid.UUID) ([]models.ExpenseTemplate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+templateColumns+`
		 FROM expense_templates
		 WHERE user_id = $1
		 ORDER BY name, created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]models.ExpenseTemplate, 0)
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}

// GetByID возвращает шаблон пользователя.
func (r *TemplateRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (models.ExpenseTemplate, error) {
	template, err := scanTemplate(r.db.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM expense_templates WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	return template, translate(err)
}

// Create сохраняет шаблон.
func (r *TemplateRepository) Create(ctx context.Context, userID uuid.UUID, name, category string) (models.ExpenseTemplate, error) {
	template, err := scanTemplate(r.db.QueryRow(ctx,
		`INSERT INTO expense_templates (user_id, name, category)
		 VALUES ($1, $2, $3)
		 RETURNING `+templateColumns,
		userID, name, category,
	))
	return template, translate(err)
}

// Update меняет имя и/или категорию шаблона.
func (r *TemplateRepository) Update(ctx context.Context, userID, id uuid.UUID, name, category *string) (models.ExpenseTemplate, error) {
	template, err := scanTemplate(r.db.QueryRow(ctx,
		`UPDATE expense_templates
		 SET name = COALESCE($3, name),
		     category = COALESCE($4, category),
		     updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+templateColumns,
		id, userID, name, category,
	))
	return template, translate(err)
}

// Delete удаляет шаблон. Созданные по нему транзакции теряют ссылку.
func (r *TemplateRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM expense_templates WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanTemplate(row pgx.Row) (models.ExpenseTemplate, error) {
	var template models.ExpenseTemplate
	err := row.Scan(&template.ID, &template.UserID, &template.Name, &template.Category, &template.CreatedAt, &template.UpdatedAt)
	return template, err
}
