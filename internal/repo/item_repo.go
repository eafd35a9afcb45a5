package repo

import (
	"context"
	"strconv"
	"strings"

	dom "github.com/ya55en/pact-showcase/internal/domain"
)

// ItemFilter narrows an item query. Zero value matches all items.
type ItemFilter struct {
	GroupID   *int64
	Ungrouped bool
}

// ItemRepo provides todo item persistence.
type ItemRepo interface {
	Create(ctx context.Context, t *dom.TodoItem) error
	GetByID(ctx context.Context, id int64) (*dom.TodoItem, error)
	List(ctx context.Context, f ItemFilter) ([]*dom.TodoItem, error)
	Update(ctx context.Context, t *dom.TodoItem) error
	Delete(ctx context.Context, id int64) error
}

// SQLItemRepo implements ItemRepo with SQL shared by SQLite and Postgres.
type SQLItemRepo struct {
	db DBTX
}

// NewSQLItemRepo returns a new SQLItemRepo.
func NewSQLItemRepo(db DBTX) *SQLItemRepo {
	return &SQLItemRepo{db: db}
}

// Create inserts t and stores the generated id on it.
func (r *SQLItemRepo) Create(ctx context.Context, t *dom.TodoItem) error {
	query := `
		INSERT INTO todo_items (group_id, title, description)
		VALUES ($1, $2, $3)
		RETURNING id`
	return r.db.QueryRowContext(ctx, query, t.GroupID, t.Title, t.Description).Scan(&t.ID)
}

func (r *SQLItemRepo) GetByID(ctx context.Context, id int64) (*dom.TodoItem, error) {
	query := `SELECT id, group_id, title, description FROM todo_items WHERE id = $1`
	t := &dom.TodoItem{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.GroupID, &t.Title, &t.Description)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *SQLItemRepo) List(ctx context.Context, f ItemFilter) ([]*dom.TodoItem, error) {
	var (
		where []string
		args  []any
	)
	switch {
	case f.GroupID != nil:
		args = append(args, *f.GroupID)
		where = append(where, "group_id = $"+strconv.Itoa(len(args)))
	case f.Ungrouped:
		where = append(where, "group_id IS NULL")
	}
	query := `SELECT id, group_id, title, description FROM todo_items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*dom.TodoItem{}
	for rows.Next() {
		t := &dom.TodoItem{}
		if err := rows.Scan(&t.ID, &t.GroupID, &t.Title, &t.Description); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *SQLItemRepo) Update(ctx context.Context, t *dom.TodoItem) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE todo_items SET group_id = $2, title = $3, description = $4 WHERE id = $1`,
		t.ID, t.GroupID, t.Title, t.Description,
	)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (r *SQLItemRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todo_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}
