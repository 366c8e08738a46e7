package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/abstractors/go-rewards/common/constants"
	"github.com/abstractors/go-rewards/configs"
	"github.com/abstractors/go-rewards/pkg/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var logger = &log.Logger

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "rewardnode",
	Short: "Off-chain fleet reward accounting node",
	Long: `rewardnode computes pending fleet rewards from on-chain fleet power,
recalculates per chain emission aggregates on a schedule and issues signed
claim proofs redeemable on the RewardClaim contract.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "command failed %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (toml, yaml or json)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("data-dir", "", "directory of the node's datastores")
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("data_dir", flags.Lookup("data-dir"))
}

// loadConfig reads the configuration, applies logging settings and returns a
// context carrying it.
func loadConfig(cmd *cobra.Command) (context.Context, *configs.MainConfiguration, error) {
	v := viper.GetViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}
	cfg, err := configs.Load(v, os.Environ())
	if err != nil {
		return nil, nil, err
	}
	log.SetLevel(cfg.LogLevel)
	if cfg.LogJSON {
		log.UseJSON()
	}
	if cfgFile != "" {
		logger.Debugf("Using config file: %s", v.ConfigFileUsed())
	}
	ctx := context.WithValue(cmd.Context(), constants.ConfigKey, cfg)
	return ctx, cfg, nil
}
