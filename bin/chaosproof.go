package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chaosproof/chaosproof/pkg/log"
	"github.com/chaosproof/chaosproof/pkg/run"
)

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          true,
		DisableSorting:         true,
		DisableLevelTruncation: true,
	})
}

func main() {

	var cfg run.Config
	exitCode := run.ExitPassed

	var runCmd = &cobra.Command{
		Use:   "run [flags]",
		Short: "Run the fault scenarios and validate the SLO targets",
		Long:  "Run the configured fault scenarios against the target, derive the resilience metrics and validate them against the SLO targets",
		Args:  cobra.MaximumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			// a first interrupt cancels the run and lets the recovery
			// observation drain, a second one kills the process
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			exitCode = run.NewExecutor(cfg).Execute(ctx)
		},
	}

	runCmd.Flags().StringVar(&cfg.ScenariosPath, "scenarios", "scenarios.json", "path of the scenarios document")
	runCmd.Flags().StringVar(&cfg.SLOPath, "slo", "", "path of the SLO overrides document")
	runCmd.Flags().StringVar(&cfg.TargetBaseURL, "target", "", "base URL of the target under test")
	runCmd.Flags().StringVar(&cfg.Mode, "mode", "live", "run mode, live or dry-run")
	runCmd.Flags().StringVar(&cfg.Environment, "environment", "dev", "SLO environment, dev, staging or prod")
	runCmd.Flags().StringVar(&cfg.ResultsPath, "results", "results.json", "path of the results artifact")
	runCmd.Flags().StringVar(&cfg.VerdictPath, "verdict", "verdict.json", "path of the verdict artifact")
	runCmd.Flags().StringVar(&cfg.PushGateway, "push-gateway", "", "Prometheus pushgateway URL, metrics are pushed when set")
	runCmd.Flags().BoolVar(&cfg.Strict, "strict", false, "exit non-zero on SLO violation")
	runCmd.MarkFlagRequired("target")

	var rootCmd = &cobra.Command{Use: "chaosproof"}
	rootCmd.AddCommand(runCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(run.ExitSetupError)
	}
	os.Exit(exitCode)
}
