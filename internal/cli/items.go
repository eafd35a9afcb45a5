package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	dom "github.com/ya55en/pact-showcase/internal/domain"
	"github.com/ya55en/pact-showcase/internal/model"
	"github.com/ya55en/pact-showcase/internal/repo"
)

func itemsCmd(opts *options) *cobra.Command {
	c := &cobra.Command{
		Use:   "items",
		Short: "Manage todo items",
	}

	c.AddCommand(itemsListCmd(opts))
	c.AddCommand(itemsAddCmd(opts))
	c.AddCommand(itemsSetCmd(opts))
	c.AddCommand(itemsDeleteCmd(opts))
	return c
}

func itemsListCmd(opts *options) *cobra.Command {
	var (
		group     int64
		ungrouped bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := repo.ItemFilter{Ungrouped: ungrouped}
			if cmd.Flags().Changed("group") {
				if ungrouped {
					return fmt.Errorf("--group and --ungrouped are exclusive")
				}
				f.GroupID = &group
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				items, err := s.svc.FindItems(ctx, f)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(s.out, "(no items found)")
					return nil
				}
				for _, it := range items {
					fmt.Fprintln(s.out, it)
				}
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&group, "group", 0, "only items of this group id")
	cmd.Flags().BoolVar(&ungrouped, "ungrouped", false, "only items without a group")
	return cmd
}

func itemsAddCmd(opts *options) *cobra.Command {
	var (
		description string
		group       int64
	)

	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := model.Fields{"title": args[0]}
			if cmd.Flags().Changed("description") {
				fields["description"] = description
			}
			if cmd.Flags().Changed("group") {
				fields["group_id"] = group
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				it, err := s.svc.CreateItem(ctx, fields)
				if err != nil {
					return err
				}
				fmt.Fprintln(s.out, it)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "item description")
	cmd.Flags().Int64Var(&group, "group", 0, "id of the owning group")
	return cmd
}

func itemsSetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set ID FIELD=VALUE...",
		Short: "Update item fields; VALUE null clears a nullable field",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			updates, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				it, err := s.svc.Item(ctx, id)
				if err != nil {
					return err
				}
				for _, u := range updates {
					if err := model.SetField(it, u.name, u.value); err != nil {
						return err
					}
				}
				if err := s.svc.SaveItem(ctx, it); err != nil {
					return err
				}
				fmt.Fprintln(s.out, it)
				return nil
			})
		},
	}
}

func itemsDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				it, err := s.svc.Item(ctx, id)
				if err != nil {
					return err
				}
				if err := s.svc.DeleteItem(ctx, it); err != nil {
					return err
				}
				fmt.Fprintf(s.out, "deleted %s\n", it)
				return nil
			})
		},
	}
}

type assignment struct {
	name  string
	value any
}

// parseAssignments turns FIELD=VALUE pairs into typed item field values.
func parseAssignments(args []string) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected FIELD=VALUE, got %q", arg)
		}
		f, known := dom.ItemSchema.Field(name)
		if !known || f.Relation {
			return nil, fmt.Errorf("unknown item field %q (known: %s)", name, strings.Join(settable(), ", "))
		}
		if raw == "null" {
			out = append(out, assignment{name: name, value: nil})
			continue
		}
		var v any = raw
		if f.Name == "group_id" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("group_id: %w", err)
			}
			v = n
		}
		out = append(out, assignment{name: name, value: v})
	}
	return out, nil
}

func settable() []string {
	var names []string
	for _, f := range dom.ItemSchema.Fields() {
		if !f.Relation && !f.PrimaryKey {
			names = append(names, f.Name)
		}
	}
	return names
}
