package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blockberries/tokenberry/registry"
	"github.com/blockberries/tokenberry/types"
)

var (
	addrVariant string
	addrSymbol  string
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Compute the deterministic address of a token before deployment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		variant, err := types.ParseVariant(addrVariant)
		if err != nil {
			return err
		}
		if !variant.IsTokenVariant() || addrSymbol == "" {
			return fmt.Errorf("a token variant and a symbol are required")
		}
		ec, err := cfg.EngineConfig()
		if err != nil {
			return err
		}
		addr := registry.ComputeTokenAddress(ec.RegistryAddress, variant, addrSymbol)
		fmt.Fprintln(cmd.OutOrStdout(), addr)
		return nil
	},
}

func init() {
	addressCmd.Flags().StringVar(&addrVariant, "variant", "fungible", "token variant (fungible, non-fungible)")
	addressCmd.Flags().StringVar(&addrSymbol, "symbol", "", "token symbol")
}
