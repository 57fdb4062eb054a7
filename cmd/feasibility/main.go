package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joelkehle/feasibility-study/internal/config"
	"github.com/joelkehle/feasibility-study/internal/logger"
	"github.com/joelkehle/feasibility-study/internal/payload"
)

var (
	cfgFile string
	cfg     config.Config
	log     *logger.Logger

	rootCmd = &cobra.Command{
		Use:                   "feasibility [command]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Offline tools for feasibility study answers and reports.",
		Long: `feasibility canonicalizes saved questionnaire answers, evaluates their
completeness, runs the financial projection and builds the narrative payload.
With a narrative provider configured it also generates and renders reports.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(cfgFile); err != nil {
				return err
			}
			if log, err = logger.New(cfg.LogMode); err != nil {
				return err
			}
			return payload.ValidateRegistry(payload.Formatters)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Sync()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.AddCommand(newSectionsCmd(), newAnalyzeCmd(), newPayloadCmd(), newReportCmd(), newRenderCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
