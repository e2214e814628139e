package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/synaptica-ai/genomics/pkg/jobs"
)

var concurrency int

var runAllCmd = &cobra.Command{
	Use:   "run-all [job...]",
	Short: "Run the named jobs, or every job, concurrently",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(concurrency)
		if err != nil {
			return err
		}
		defer a.close()
		return a.runner.RunAll(cmd.Context(), args...)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available jobs",
	RunE: func(*cobra.Command, []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, j := range jobs.Registry(&jobs.Env{}) {
			fmt.Fprintf(w, "%s\t%s\t%s\n", j.Name, j.ID, j.Short)
		}
		return w.Flush()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the genomic tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(1)
		if err != nil {
			return err
		}
		defer a.close()
		return a.env.Migrate()
	},
}

// jobCommand runs a single registered job.
func jobCommand(j jobs.Job) *cobra.Command {
	return &cobra.Command{
		Use:   j.Name,
		Short: j.Short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(1)
			if err != nil {
				return err
			}
			defer a.close()
			result, err := a.runner.Run(cmd.Context(), j.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", j.Name, result)
			return nil
		},
	}
}

func init() {
	runAllCmd.Flags().IntVar(&concurrency, "concurrency", 4, "Maximum number of jobs running at once")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single job",
	}
	for _, j := range jobs.Registry(&jobs.Env{}) {
		runCmd.AddCommand(jobCommand(j))
	}

	rootCmd.AddCommand(runCmd, runAllCmd, listCmd, migrateCmd)
}
