package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	dom "github.com/ya55en/pact-showcase/internal/domain"
	"github.com/ya55en/pact-showcase/internal/logger"
	"github.com/ya55en/pact-showcase/internal/model"
	"github.com/ya55en/pact-showcase/internal/repo"
	"github.com/ya55en/pact-showcase/internal/utils"

	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("referenced group does not exist")
)

// TodoService runs entity operations for todo groups and items.
type TodoService struct {
	store *repo.Store
	log   *slog.Logger
	sf    singleflight.Group
}

// NewTodoService creates a TodoService. A nil logger falls back to logger.L.
func NewTodoService(store *repo.Store, log *slog.Logger) *TodoService {
	if log == nil {
		log = logger.L()
	}
	return &TodoService{store: store, log: log}
}

// CreateGroup constructs a group from fields and persists it.
func (s *TodoService) CreateGroup(ctx context.Context, fields model.Fields) (*dom.TodoGroup, error) {
	return createGroup(ctx, s.store, fields)
}

// CreateItem constructs an item from fields and persists it.
func (s *TodoService) CreateItem(ctx context.Context, fields model.Fields) (*dom.TodoItem, error) {
	return createItem(ctx, s.store, fields)
}

func createGroup(ctx context.Context, store *repo.Store, fields model.Fields) (*dom.TodoGroup, error) {
	g, err := model.New[dom.TodoGroup](fields)
	if err != nil {
		return nil, err
	}
	if err := model.Validate(g); err != nil {
		return nil, err
	}
	if err := store.Groups.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

func createItem(ctx context.Context, store *repo.Store, fields model.Fields) (*dom.TodoItem, error) {
	t, err := model.New[dom.TodoItem](fields)
	if err != nil {
		return nil, err
	}
	if err := model.Validate(t); err != nil {
		return nil, err
	}
	if err := store.Items.Create(ctx, t); err != nil {
		return nil, itemWriteError("create item", err)
	}
	return t, nil
}

// Group returns the group with the given id.
func (s *TodoService) Group(ctx context.Context, id int64) (*dom.TodoGroup, error) {
	g, err := s.store.Groups.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "TodoGroup", id)
	}
	return g, nil
}

// Item returns the item with the given id.
func (s *TodoService) Item(ctx context.Context, id int64) (*dom.TodoItem, error) {
	t, err := s.store.Items.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "TodoItem", id)
	}
	return t, nil
}

// Groups lists every group in creation order. Concurrent calls share one
// query that outlives any single caller's cancellation; each caller gets its
// own copies of the entities.
func (s *TodoService) Groups(ctx context.Context) ([]*dom.TodoGroup, error) {
	v, err, _ := s.sf.Do("groups", func() (interface{}, error) {
		return s.store.Groups.List(context.WithoutCancel(ctx), repo.GroupFilter{})
	})
	if err != nil {
		return nil, err
	}
	return cloneAll(v.([]*dom.TodoGroup)), nil
}

// Items lists every item in creation order, like Groups.
func (s *TodoService) Items(ctx context.Context) ([]*dom.TodoItem, error) {
	v, err, _ := s.sf.Do("items", func() (interface{}, error) {
		return s.store.Items.List(context.WithoutCancel(ctx), repo.ItemFilter{})
	})
	if err != nil {
		return nil, err
	}
	return cloneAll(v.([]*dom.TodoItem)), nil
}

func (s *TodoService) FindGroups(ctx context.Context, f repo.GroupFilter) ([]*dom.TodoGroup, error) {
	return s.store.Groups.List(ctx, f)
}

func (s *TodoService) FindItems(ctx context.Context, f repo.ItemFilter) ([]*dom.TodoItem, error) {
	return s.store.Items.List(ctx, f)
}

// SaveGroup writes g back. A group without identity is inserted.
func (s *TodoService) SaveGroup(ctx context.Context, g *dom.TodoGroup) error {
	if err := model.Validate(g); err != nil {
		return err
	}
	if g.ID == 0 {
		if err := s.store.Groups.Create(ctx, g); err != nil {
			return fmt.Errorf("create group: %w", err)
		}
		return nil
	}
	if err := s.store.Groups.Update(ctx, g); err != nil {
		return lookupError(err, "TodoGroup", g.ID)
	}
	return nil
}

// SaveItem writes t back. An item without identity is inserted.
func (s *TodoService) SaveItem(ctx context.Context, t *dom.TodoItem) error {
	if err := model.Validate(t); err != nil {
		return err
	}
	if t.ID == 0 {
		if err := s.store.Items.Create(ctx, t); err != nil {
			return itemWriteError("create item", err)
		}
		return nil
	}
	if err := s.store.Items.Update(ctx, t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return lookupError(err, "TodoItem", t.ID)
		}
		return itemWriteError("update item", err)
	}
	return nil
}

// DeleteGroup removes g. Its items stay, ungrouped.
func (s *TodoService) DeleteGroup(ctx context.Context, g *dom.TodoGroup) error {
	if err := s.store.Groups.Delete(ctx, g.ID); err != nil {
		return lookupError(err, "TodoGroup", g.ID)
	}
	s.log.Debug("group deleted", "id", g.ID)
	return nil
}

// DeleteItem removes t.
func (s *TodoService) DeleteItem(ctx context.Context, t *dom.TodoItem) error {
	if err := s.store.Items.Delete(ctx, t.ID); err != nil {
		return lookupError(err, "TodoItem", t.ID)
	}
	s.log.Debug("item deleted", "id", t.ID)
	return nil
}

// GroupItems resolves g.Items on first access, in creation order.
func (s *TodoService) GroupItems(ctx context.Context, g *dom.TodoGroup) ([]*dom.TodoItem, error) {
	if items, ok := g.Items.All(); ok {
		return items, nil
	}
	id := g.ID
	items, err := s.store.Items.List(ctx, repo.ItemFilter{GroupID: &id})
	if err != nil {
		return nil, err
	}
	g.Items.Set(items)
	return items, nil
}

// ItemGroup resolves t.Group on first access. Ungrouped items yield nil.
func (s *TodoService) ItemGroup(ctx context.Context, t *dom.TodoItem) (*dom.TodoGroup, error) {
	if g, ok := t.Group.Get(); ok {
		return g, nil
	}
	if t.GroupID == nil {
		t.Group.Set(nil)
		return nil, nil
	}
	g, err := s.store.Groups.GetByID(ctx, *t.GroupID)
	if err != nil {
		return nil, lookupError(err, "TodoGroup", *t.GroupID)
	}
	t.Group.Set(g)
	return g, nil
}

// cloneAll copies freshly loaded entities. They carry no attribute bag and
// no resolved relations, so a shallow copy shares nothing mutable.
func cloneAll[T any](list []*T) []*T {
	out := make([]*T, len(list))
	for i, v := range list {
		c := *v
		out[i] = &c
	}
	return out
}

func lookupError(err error, typ string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s id=%d", ErrNotFound, typ, id)
	}
	return err
}

func itemWriteError(op string, err error) error {
	if utils.IsForeignKeyViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrInvalidReference)
	}
	return fmt.Errorf("%s: %w", op, err)
}
