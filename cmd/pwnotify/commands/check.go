package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pwnotify/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and collaborator reachability",
	Long: `Load and validate the configuration, then verify the mail transport
and the directory are reachable. No accounts are fetched and nothing is
sent.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	fmt.Printf("config ok: %s\n", configPath)

	svc, cleanup, err := newServiceFn(ctx, cfg, nil, newLogger(cfg))
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.Preflight(ctx); err != nil {
		return err
	}
	fmt.Printf("mail transport ok: %s\n", cfg.SMTPAddr)
	fmt.Printf("directory ok: %s\n", cfg.Directory.Type)
	return nil
}
