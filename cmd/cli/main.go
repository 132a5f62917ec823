package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"perturbscope/domain/core"
	"perturbscope/internal/config"
	"perturbscope/internal/container"
	"perturbscope/internal/logging"
)

func main() {
	// Missing .env is fine; environment variables win either way.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "perturbscope",
		Short: "Mixscape classification of single-cell CRISPR perturbation screens",
	}

	rootCmd.AddCommand(
		newClassifyCmd(),
		newExtractCmd(),
		newRunsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClassifyCmd() *cobra.Command {
	var paramsFile string
	var outputDir string
	var report bool

	cmd := &cobra.Command{
		Use:   "classify [dataset-dir]",
		Short: "Run the full classification pipeline on a dataset directory",
		Long: `Load a dataset, normalize, compute the perturbation signature,
classify every target-gene group, and write the knocked-out gene list.

Example: perturbscope classify ./data/thp1 --params params.yaml --report`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := config.LoadParams(paramsFile)
			if err != nil {
				return err
			}

			cfg, log, c, err := bootstrap()
			if err != nil {
				return err
			}
			defer c.Close()
			defer log.Sync()
			if outputDir == "" {
				outputDir = cfg.Paths.OutputDir
			}

			record, _, err := c.Pipeline.Run(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}

			listPath := filepath.Join(outputDir, "knockout_genes.txt")
			if err := c.GeneList.WriteGeneList(listPath, record.Knockouts); err != nil {
				return err
			}
			fmt.Printf("run %s: %d groups, %d knockout genes -> %s\n",
				record.ID, len(record.Groups), len(record.Knockouts), listPath)

			if report {
				reportPath := filepath.Join(outputDir, "run_report.xlsx")
				if err := c.Report.WriteReport(reportPath, record); err != nil {
					return err
				}
				fmt.Printf("report -> %s\n", reportPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&paramsFile, "params", "", "YAML file overriding pipeline parameters")
	cmd.Flags().StringVar(&outputDir, "out", "", "Output directory (default from OUTPUT_DIR)")
	cmd.Flags().BoolVar(&report, "report", false, "Also write an Excel run report")

	return cmd
}

func newExtractCmd() *cobra.Command {
	var threshold float64
	var output string

	cmd := &cobra.Command{
		Use:   "extract [run-id]",
		Short: "Re-extract the knockout gene list from a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}

			_, log, c, err := bootstrap()
			if err != nil {
				return err
			}
			defer c.Close()
			defer log.Sync()

			genes, err := c.Extract.Extract(cmd.Context(), runID, threshold)
			if err != nil {
				return err
			}
			if output != "" {
				if err := c.GeneList.WriteGeneList(output, genes); err != nil {
					return err
				}
				fmt.Printf("%d knockout genes -> %s\n", len(genes), output)
				return nil
			}
			for _, g := range genes {
				fmt.Printf("%s\t%.4f\t%d\n", g.Gene, g.Posterior, g.Cells)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 1.0, "Posterior cutoff for the knockout call")
	cmd.Flags().StringVar(&output, "out", "", "Write the list to a file instead of stdout")

	return cmd
}

func newRunsCmd() *cobra.Command {
	var datasetID string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored classification runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, c, err := bootstrap()
			if err != nil {
				return err
			}
			defer c.Close()
			defer log.Sync()

			runs, err := c.Ledger.ListRuns(cmd.Context(), core.DatasetID(datasetID))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			for _, run := range runs {
				summary := map[string]interface{}{
					"id":         run.ID,
					"dataset_id": run.DatasetID,
					"groups":     len(run.Groups),
					"knockouts":  len(run.Knockouts),
					"started_at": run.StartedAt,
				}
				if err := enc.Encode(summary); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetID, "dataset", "", "Filter runs by dataset ID")

	return cmd
}

func bootstrap() (*config.Config, *zap.Logger, *container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := logging.New(os.Getenv("APP_ENV"))
	if err != nil {
		return nil, nil, nil, err
	}
	c, err := container.New(cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, c, nil
}
