package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/memeyard/internal/db"
	"github.com/zulandar/memeyard/internal/models"
)

func newStatusCmd() *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show moderation queue counts",
		Long:  "Prints how many submissions sit in each status across all users.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, st, err := flags.openStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close(gormDB)

			counts, err := st.CountByStatus("")
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STATUS\tCOUNT")
			for _, s := range models.AllStatuses {
				fmt.Fprintf(w, "%s\t%d\n", s, counts.Get(s))
			}
			fmt.Fprintf(w, "total\t%d\n", counts.Total())
			return w.Flush()
		},
	}

	flags.register(cmd)
	return cmd
}
