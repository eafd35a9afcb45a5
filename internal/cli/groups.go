package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ya55en/pact-showcase/internal/model"
	"github.com/ya55en/pact-showcase/internal/repo"
)

func groupsCmd(opts *options) *cobra.Command {
	c := &cobra.Command{
		Use:   "groups",
		Short: "Manage todo groups",
	}

	c.AddCommand(groupsListCmd(opts))
	c.AddCommand(groupsAddCmd(opts))
	c.AddCommand(groupsRenameCmd(opts))
	c.AddCommand(groupsDeleteCmd(opts))
	return c
}

func groupsListCmd(opts *options) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				groups, err := s.svc.FindGroups(ctx, repo.GroupFilter{Name: name})
				if err != nil {
					return err
				}
				if len(groups) == 0 {
					fmt.Fprintln(s.out, "(no groups found)")
					return nil
				}
				for _, g := range groups {
					fmt.Fprintln(s.out, g)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "only groups with this exact name")
	return cmd
}

func groupsAddCmd(opts *options) *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := model.Fields{"name": args[0]}
			if cmd.Flags().Changed("comment") {
				fields["comment"] = comment
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				g, err := s.svc.CreateGroup(ctx, fields)
				if err != nil {
					return err
				}
				fmt.Fprintln(s.out, g)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&comment, "comment", "", "group comment")
	return cmd
}

func groupsRenameCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				g, err := s.svc.Group(ctx, id)
				if err != nil {
					return err
				}
				if err := model.SetField(g, "name", args[1]); err != nil {
					return err
				}
				if err := s.svc.SaveGroup(ctx, g); err != nil {
					return err
				}
				fmt.Fprintln(s.out, g)
				return nil
			})
		},
	}
}

func groupsDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a group; its items become ungrouped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) error {
				g, err := s.svc.Group(ctx, id)
				if err != nil {
					return err
				}
				if err := s.svc.DeleteGroup(ctx, g); err != nil {
					return err
				}
				fmt.Fprintf(s.out, "deleted %s\n", g)
				return nil
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
