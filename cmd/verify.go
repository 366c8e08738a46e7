package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/abstractors/go-rewards/entities"
	"github.com/abstractors/go-rewards/pkg/node"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <claim-json>",
	Short: "Check a claim proof against this node's signer",
	Long: `Reads a claim proof (userAddress, amount, epoch, proof) as JSON from the
given argument and reports whether this node signed it and it is still fresh.`,
	Args: cobra.ExactArgs(1),
	RunE: verifyFunc,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func verifyFunc(cmd *cobra.Command, args []string) error {
	var claim entities.ClaimProof
	if err := json.Unmarshal([]byte(args[0]), &claim); err != nil {
		return fmt.Errorf("decode claim: %w", err)
	}
	ctx, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	n, err := node.New(ctx, cfg, node.Options{InMemory: true})
	if err != nil {
		return err
	}
	defer n.Close()

	result := n.Service.VerifyClaimProof(ctx, claim)
	out, err := json.Marshal(result)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if !result.Valid {
		return fmt.Errorf("claim rejected: %s", result.Reason)
	}
	return nil
}
