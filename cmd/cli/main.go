package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gorla/domain/election"
	"gorla/internal/driver"
	"gorla/internal/engine"
	"gorla/internal/sim"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gorla",
		Short: "Risk-limiting audit workbench",
	}

	rootCmd.AddCommand(
		newInteractiveCmd(),
		newBulkCmd(),
		newSimulateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newInteractiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Execute an audit round by round from prompts",
		Long: `Executes an audit round by round.

In interactive mode you will be prompted for the audit type, the risk
limit, the maximum fraction of ballots to draw, the contest results and
each round's sample. After each round the tool reports whether the
stopping condition was met.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			session := driver.NewInteractive(cmd.InOrStdin(), cmd.OutOrStdout())
			if err := session.Run(); err != nil {
				// A closed input stream is the abort path.
				return err
			}
			return nil
		},
	}
}

func newBulkCmd() *cobra.Command {
	var roundList string
	var delta float64
	var electionFile string

	cmd := &cobra.Command{
		Use:   "bulk [flags] CONTEST_FILE AUDIT_TYPE RISK_LIMIT MAX_FRACTION [OBSERVATIONS...]",
		Short: "Generate audit data for a fixed round schedule",
		Long: `Bulk mode generates stopping sizes for a fixed round schedule and,
when observed round counts are supplied, replays the audit against them.

Observations are either "<winner>:<loser>" cumulative counts, one per
round, or a single "@file.json" holding a JSON list of
{"winner_ballots": ..., "loser_ballots": ...} entries.

With --election-file the contest-file argument is omitted and every
contest of the election gets its own schedule.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, err := driver.ParseSchedule(roundList)
			if err != nil {
				return err
			}

			if electionFile != "" {
				elect, err := election.LoadElectionFile(electionFile)
				if err != nil {
					return err
				}
				tag, alpha, maxFraction, err := parseAuditArgs(args[0], args[1], args[2])
				if err != nil {
					return err
				}
				return driver.RunBulkElection(elect, driver.BulkRequest{
					Engine:      tag,
					Alpha:       alpha,
					Delta:       delta,
					MaxFraction: maxFraction,
					Schedule:    schedule,
				}, cmd.OutOrStdout())
			}

			if len(args) < 4 {
				return fmt.Errorf("expected CONTEST_FILE AUDIT_TYPE RISK_LIMIT MAX_FRACTION")
			}
			contest, err := election.LoadContestFile(args[0])
			if err != nil {
				return err
			}
			tag, alpha, maxFraction, err := parseAuditArgs(args[1], args[2], args[3])
			if err != nil {
				return err
			}
			observations, err := driver.ParseObservations(args[4:])
			if err != nil {
				return err
			}
			return driver.RunBulk(driver.BulkRequest{
				Contest:      contest,
				Engine:       tag,
				Alpha:        alpha,
				Delta:        delta,
				MaxFraction:  maxFraction,
				Schedule:     schedule,
				Observations: observations,
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&roundList, "round-list", "l", "", `Space separated round schedule, e.g. -l "100 200 400"`)
	cmd.Flags().Float64Var(&delta, "delta", 1.0, "Athena delta parameter")
	cmd.Flags().StringVar(&electionFile, "election-file", "", "Audit every contest of an election JSON file")
	_ = cmd.MarkFlagRequired("round-list")
	return cmd
}

func parseAuditArgs(tagArg, alphaArg, fractionArg string) (engine.Tag, float64, float64, error) {
	tag, err := engine.ParseTag(tagArg)
	if err != nil {
		return "", 0, 0, err
	}
	var alpha, maxFraction float64
	if _, err := fmt.Sscanf(alphaArg, "%g", &alpha); err != nil {
		return "", 0, 0, fmt.Errorf("risk limit must be a number: %w", err)
	}
	if _, err := fmt.Sscanf(fractionArg, "%g", &maxFraction); err != nil {
		return "", 0, 0, fmt.Errorf("max fraction must be a number: %w", err)
	}
	return tag, alpha, maxFraction, nil
}

func newSimulateCmd() *cobra.Command {
	var roundList string
	var trials int
	var seed int64
	var delta float64

	cmd := &cobra.Command{
		Use:   "simulate CONTEST_FILE AUDIT_TYPE RISK_LIMIT MAX_FRACTION",
		Short: "Estimate empirical stopping rates for a round schedule",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			contest, err := election.LoadContestFile(args[0])
			if err != nil {
				return err
			}
			tag, alpha, _, err := parseAuditArgs(args[1], args[2], args[3])
			if err != nil {
				return err
			}
			schedule, err := driver.ParseSchedule(roundList)
			if err != nil {
				return err
			}
			winner := contest.Winners[0]
			loser, err := contest.TopLoser()
			if err != nil {
				return err
			}
			pair, err := contest.PairwiseReduction(winner, loser, election.PoolRelevant)
			if err != nil {
				return err
			}
			res, err := sim.Run(context.Background(), pair, tag,
				engine.Params{Alpha: alpha, Delta: delta},
				schedule, sim.Options{Trials: trials, Seed: seed})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVarP(&roundList, "round-list", "l", "", `Space separated round schedule`)
	cmd.Flags().IntVar(&trials, "trials", 1000, "Number of simulated audits")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic runs")
	cmd.Flags().Float64Var(&delta, "delta", 1.0, "Athena delta parameter")
	_ = cmd.MarkFlagRequired("round-list")
	return cmd
}
