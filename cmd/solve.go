package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/drtmdp/app"
	"github.com/kilianp07/drtmdp/config"
)

var solveFlags struct {
	algorithm string
	trials    int
	seed      uint64
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve the dispatch problem and simulate the policy",
	RunE:  runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&solveFlags.algorithm, "algorithm", "a", "", "override solver.algorithm")
	solveCmd.Flags().IntVarP(&solveFlags.trials, "trials", "n", -1, "override simulation.trials")
	solveCmd.Flags().Uint64Var(&solveFlags.seed, "seed", 0, "override simulation.seed")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	override := func(cfg *config.Config) {
		if solveFlags.algorithm != "" {
			cfg.Solver.Algorithm = solveFlags.algorithm
		}
		if solveFlags.trials >= 0 {
			cfg.Simulation.Trials = solveFlags.trials
		}
		if cmd.Flags().Changed("seed") {
			cfg.Simulation.Seed = solveFlags.seed
		}
	}
	return withService(override, func(ctx context.Context, svc *app.Service) error {
		rep, err := svc.Run(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		s := rep.Summary
		_, err = fmt.Fprintf(out, "run %s\nalgorithm %s\nstates %d\nactions %d\niterations %d\nexpected value %s\n",
			rep.RunID, rep.Algorithm, rep.States.Len(), rep.Actions.Len(), rep.Result.Iterations, app.Value(rep.InitialValue))
		if err != nil || s.Trials == 0 {
			return err
		}
		_, err = fmt.Fprintf(out, "trials %d (%d infeasible)\nrevenue mean %.4f sd %.4f se %.4f\nrevenue p05 %.4f median %.4f p95 %.4f\n",
			s.Trials, s.Infeasible, s.Mean, s.StdDev, s.StdErr, s.P05, s.Median, s.P95)
		return err
	})
}
