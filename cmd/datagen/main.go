package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanshika/internet-atlas/backend/internal/generator"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := generator.DefaultConfig()
	var (
		output    string
		start     string
		useStdout bool
	)

	cmd := &cobra.Command{
		Use:          "datagen",
		Short:        "Generates a synthetic browsing session export",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if start != "" {
				parsed, err := time.Parse(time.DateOnly, start)
				if err != nil {
					return fmt.Errorf("invalid --start %q: %w", start, err)
				}
				cfg.Start = parsed
			}
			cfg.DirtyRatio = clampProbability(cfg.DirtyRatio)

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			rows, err := generator.New(cfg).Generate(ctx)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			if useStdout {
				return generator.WriteCSV(os.Stdout, rows)
			}
			if err := generator.WriteDataset(rows, output); err != nil {
				return fmt.Errorf("failed to write dataset: %w", err)
			}
			fmt.Fprintf(os.Stdout, "Generated %d sessions for %d users into %s\n", len(rows), cfg.NumUsers, output)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&cfg.NumUsers, "users", cfg.NumUsers, "number of panelists to generate")
	flags.IntVar(&cfg.SessionsPerUser, "sessions-per-user", cfg.SessionsPerUser, "sessions generated per panelist")
	flags.IntVar(&cfg.DomainPoolSize, "domains", cfg.DomainPoolSize, "size of the domain pool")
	flags.Float64Var(&cfg.DirtyRatio, "dirty-ratio", cfg.DirtyRatio, "share of rows given one malformation")
	flags.Float64Var(&cfg.Skew, "skew", cfg.Skew, "Zipf exponent of domain popularity (must exceed 1)")
	flags.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for deterministic generation")
	flags.StringVar(&start, "start", "", "first day of the panel (YYYY-MM-DD)")
	flags.StringVarP(&output, "output", "o", "data/sessions.csv", "CSV file to write")
	flags.BoolVar(&useStdout, "stdout", false, "write the CSV to stdout instead of a file")

	return cmd
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
