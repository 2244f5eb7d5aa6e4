package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("todo not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, t Todo) (Todo, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Todo{}, fmt.Errorf("generate todo id: %w", err)
	}

	now := time.Now().UTC()
	t.ID = id.String()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO todos (id, user_id, title, description, priority, status, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, t.ID, t.UserID, t.Title, t.Description, t.Priority, t.Status, t.DueDate, now)
	if err != nil {
		return Todo{}, fmt.Errorf("insert todo: %w", err)
	}

	return t, nil
}

// ListResult carries the page plus the counters the dashboard shows.
type ListResult struct {
	Todos         []Todo `json:"todos"`
	FilteredCount int    `json:"filteredCount"`
	AllTodosCount int    `json:"allTodosCount"`
	DueToday      int    `json:"dueToday"`
}

// ListByUser returns one page of the user's todos, pending before
// completed, newest first within each group.
func (r *Repository) ListByUser(ctx context.Context, userID, status string, page, limit int) (ListResult, error) {
	where := `WHERE user_id = $1`
	args := []any{userID, limit, (page - 1) * limit}
	if status != "" {
		where += ` AND status = $4`
		args = append(args, status)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, priority, status, due_date, created_at, updated_at
		FROM todos `+where+`
		ORDER BY CASE status WHEN 'pending' THEN 0 ELSE 1 END, created_at DESC
		LIMIT $2 OFFSET $3
	`, args...)
	if err != nil {
		return ListResult{}, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	result := ListResult{Todos: make([]Todo, 0, limit)}
	for rows.Next() {
		var t Todo
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Status, &t.DueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return ListResult{}, fmt.Errorf("scan todo row: %w", err)
		}
		result.Todos = append(result.Todos, t)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("iterate todo rows: %w", err)
	}

	countArgs := []any{userID}
	countWhere := `WHERE user_id = $1`
	if status != "" {
		countWhere += ` AND status = $2`
		countArgs = append(countArgs, status)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos `+countWhere, countArgs...).Scan(&result.FilteredCount); err != nil {
		return ListResult{}, fmt.Errorf("count filtered todos: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos WHERE user_id = $1`, userID).Scan(&result.AllTodosCount); err != nil {
		return ListResult{}, fmt.Errorf("count all todos: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM todos WHERE user_id = $1 AND due_date = CURRENT_DATE
	`, userID).Scan(&result.DueToday); err != nil {
		return ListResult{}, fmt.Errorf("count due today: %w", err)
	}

	return result, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (Todo, error) {
	var t Todo
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, priority, status, due_date, created_at, updated_at
		FROM todos
		WHERE id = $1
	`, id).Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Status, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Todo{}, ErrNotFound
		}
		return Todo{}, fmt.Errorf("query todo: %w", err)
	}
	return t, nil
}

func (r *Repository) Update(ctx context.Context, t Todo) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE todos
		SET title = $2, description = $3, priority = $4, status = $5, due_date = $6, updated_at = $7
		WHERE id = $1
	`, t.ID, t.Title, t.Description, t.Priority, t.Status, t.DueDate, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE todos SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update todo status: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
