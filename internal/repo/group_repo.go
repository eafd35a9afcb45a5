package repo

import (
	"context"
	"strconv"
	"strings"

	dom "github.com/ya55en/pact-showcase/internal/domain"
)

// GroupFilter narrows a group query. Zero value matches all groups.
type GroupFilter struct {
	Name string
}

// GroupRepo provides todo group persistence.
type GroupRepo interface {
	Create(ctx context.Context, g *dom.TodoGroup) error
	GetByID(ctx context.Context, id int64) (*dom.TodoGroup, error)
	List(ctx context.Context, f GroupFilter) ([]*dom.TodoGroup, error)
	Update(ctx context.Context, g *dom.TodoGroup) error
	Delete(ctx context.Context, id int64) error
}

// SQLGroupRepo implements GroupRepo with SQL shared by SQLite and Postgres.
type SQLGroupRepo struct {
	db DBTX
}

// NewSQLGroupRepo returns a new SQLGroupRepo.
func NewSQLGroupRepo(db DBTX) *SQLGroupRepo {
	return &SQLGroupRepo{db: db}
}

// Create inserts g and stores the generated id on it.
func (r *SQLGroupRepo) Create(ctx context.Context, g *dom.TodoGroup) error {
	query := `
		INSERT INTO todo_groups (name, comment)
		VALUES ($1, $2)
		RETURNING id`
	return r.db.QueryRowContext(ctx, query, g.Name, g.Comment).Scan(&g.ID)
}

func (r *SQLGroupRepo) GetByID(ctx context.Context, id int64) (*dom.TodoGroup, error) {
	query := `SELECT id, name, comment FROM todo_groups WHERE id = $1`
	g := &dom.TodoGroup{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &g.Comment)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *SQLGroupRepo) List(ctx context.Context, f GroupFilter) ([]*dom.TodoGroup, error) {
	var (
		where []string
		args  []any
	)
	if f.Name != "" {
		args = append(args, f.Name)
		where = append(where, "name = $"+strconv.Itoa(len(args)))
	}
	query := `SELECT id, name, comment FROM todo_groups`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*dom.TodoGroup{}
	for rows.Next() {
		g := &dom.TodoGroup{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Comment); err != nil {
			return nil, err
		}
		list = append(list, g)
	}
	return list, rows.Err()
}

func (r *SQLGroupRepo) Update(ctx context.Context, g *dom.TodoGroup) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE todo_groups SET name = $2, comment = $3 WHERE id = $1`,
		g.ID, g.Name, g.Comment,
	)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (r *SQLGroupRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todo_groups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}
