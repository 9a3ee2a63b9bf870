package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/memeyard/internal/db"
	"github.com/zulandar/memeyard/internal/models"
	"github.com/zulandar/memeyard/internal/store"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage chat users and roles",
	}

	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserRoleCmd("promote", "Grant the manager role", models.RoleManager))
	cmd.AddCommand(newUserRoleCmd("demote", "Revoke the manager role", models.RoleUploader))
	return cmd
}

func newUserListCmd() *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known users",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, st, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close(gormDB)

			users, err := st.ListUsers()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "No users found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tROLE\tJOINED")
			for _, u := range users {
				name := u.Name()
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, name, u.Role, u.CreatedAt.UTC().Format("2006-01-02"))
			}
			return w.Flush()
		},
	}

	flags.register(cmd)
	return cmd
}

func newUserRoleCmd(use, short string, role models.Role) *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   use + " <id-or-display-name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, st, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close(gormDB)

			u, err := st.SetRole(args[0], role)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("user %q not found", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s is now %s\n", describeUser(u), u.Role)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func describeUser(u *models.User) string {
	if name := u.Name(); name != "" {
		return fmt.Sprintf("%q (%s)", name, u.ID)
	}
	return u.ID
}
