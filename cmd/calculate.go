package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/abstractors/go-rewards/pkg/node"
	"github.com/spf13/cobra"
)

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Recalculate every chain's aggregate once and exit",
	RunE:  calculateFunc,
}

func init() {
	rootCmd.AddCommand(calculateCmd)
}

func calculateFunc(cmd *cobra.Command, args []string) error {
	ctx, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	n, err := node.New(ctx, cfg, node.Options{})
	if err != nil {
		return err
	}
	defer n.Close()

	result, err := n.Calculate(ctx)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if failed := result.Failures(); failed > 0 {
		return fmt.Errorf("%d of %d chains failed", failed, len(result))
	}
	return nil
}
