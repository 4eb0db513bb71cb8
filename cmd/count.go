package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/drtmdp/app"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of states and actions without solving",
	RunE:  runCount,
}

func init() {
	rootCmd.AddCommand(countCmd)
}

func runCount(cmd *cobra.Command, args []string) error {
	return withService(nil, func(ctx context.Context, svc *app.Service) error {
		c, err := svc.Count(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "states %d\ninfeasible states %d\nactions %d\n", c.States, c.Infeasible, c.Actions)
		return err
	})
}
