package service

import (
	"context"

	"github.com/ya55en/pact-showcase/internal/model"
	"github.com/ya55en/pact-showcase/internal/repo"
)

const seedGroupName = "Daily"

// Seed inserts the starter group and its items unless a group named
// "Daily" already exists.
func (s *TodoService) Seed(ctx context.Context) error {
	existing, err := s.store.Groups.List(ctx, repo.GroupFilter{Name: seedGroupName})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		s.log.Debug("seed skipped", "group", seedGroupName)
		return nil
	}

	return s.store.InTx(ctx, func(tx *repo.Store) error {
		group, err := createGroup(ctx, tx, model.Fields{"name": seedGroupName, "comment": "Daily todos"})
		if err != nil {
			return err
		}
		items := []model.Fields{
			{"title": "Buy bread", "description": "Check how much is left and provide some", "group": group},
			{"title": "Check messages", "group": group},
			{"title": "Go to Bed", "description": "Self-explanantory", "group": group},
		}
		for _, fields := range items {
			if _, err := createItem(ctx, tx, fields); err != nil {
				return err
			}
		}
		s.log.Info("database seeded", "group_id", group.ID, "items", len(items))
		return nil
	})
}
