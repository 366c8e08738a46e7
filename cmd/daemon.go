package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/abstractors/go-rewards/pkg/node"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the reward node",
	Long:  `Serves the rewards api and recalculates chain aggregates every recalculation.interval.`,
	RunE:  daemonFunc,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().String("rest-address", "", "address the rest api listens on")
	daemonCmd.Flags().Bool("no-initial-run", false, "skip the recalculation on start")
	viper.BindPFlag("rest_address", daemonCmd.Flags().Lookup("rest-address"))
}

func daemonFunc(cmd *cobra.Command, args []string) error {
	ctx, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if skip, _ := cmd.Flags().GetBool("no-initial-run"); skip {
		cfg.Recalculation.RunOnStart = false
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return node.Start(&ctx)
}
