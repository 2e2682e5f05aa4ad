package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pwnotify/internal/config"
	"pwnotify/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the notification pipeline once",
	Long: `Validate configuration and reachability, classify every directory
account, send expiry notifications where due, and mail the audit report
to the administrator.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(
		&reportPathOverride, "report", "",
		"Report file path (overrides the configured path)",
	)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	reportPath := cfg.ReportPath
	if reportPathOverride != "" {
		reportPath = reportPathOverride
	}
	rep, err := report.New(reportPath)
	if err != nil {
		return err
	}
	defer rep.Close()

	svc, cleanup, err := newServiceFn(ctx, cfg, rep, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	sum, err := svc.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: processed %d, notified %d, failed %d (report: %s)\n",
		sum.RunID, sum.Processed, sum.Notified, sum.Failed, reportPath)
	return nil
}
