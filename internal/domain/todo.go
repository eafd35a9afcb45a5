package domain

import "github.com/ya55en/pact-showcase/internal/model"

// TodoGroup is a named collection of todo items.
type TodoGroup struct {
	model.Base

	ID      int64                `model:"id,pk"`
	Name    string               `model:"name"`
	Comment *string              `model:"comment,null"`
	Items   model.Many[TodoItem] `model:"items,rel"`
}

func (g *TodoGroup) String() string { return model.Display(g) }

// TodoItem is a single todo entry. GroupID is nil for ungrouped items.
type TodoItem struct {
	model.Base

	ID          int64                `model:"id,pk"`
	GroupID     *int64               `model:"group_id,null"`
	Group       model.One[TodoGroup] `model:"group,rel,fk=group_id"`
	Title       string               `model:"title,maxlen=255"`
	Description *string              `model:"description,null"`
}

func (t *TodoItem) String() string { return model.Display(t) }

// Registries are built once, when the package is loaded.
var (
	GroupSchema = model.For[TodoGroup]()
	ItemSchema  = model.For[TodoItem]()
)
