package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blockberries/tokenberry/guardian"
	"github.com/blockberries/tokenberry/registry"
)

var (
	guardianKey     string
	guardianRequest string
)

var guardianCmd = &cobra.Command{
	Use:   "guardian",
	Short: "Manage the guardian key that approves token creation",
}

var guardianKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a guardian key file and print its public key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(guardianKey); err == nil {
			return fmt.Errorf("key file %s already exists", guardianKey)
		}
		key, err := guardian.GenerateFileKey(guardianKey)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(key.PublicKey()))
		return nil
	},
}

var guardianSignCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a token creation request",
	Long: `Reads a JSON creation request and prints the base64 signature to use
as the signature field of a create_token transaction:

  {"variant": 1, "maintainer": "0x..", "name": "Gov", "symbol": "GOV", "extensions": ["voting"]}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(guardianRequest)
		if err != nil {
			return err
		}
		var req registry.CreateRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("parse request: %w", err)
		}
		key, err := guardian.LoadFileKey(guardianKey)
		if err != nil {
			return err
		}
		sig := key.Sign(cfg.Engine.ChainID, req.Payload())
		fmt.Fprintln(cmd.OutOrStdout(), base64.StdEncoding.EncodeToString(sig))
		return nil
	},
}

func init() {
	guardianCmd.PersistentFlags().StringVar(&guardianKey, "key", "data/guardian.json", "guardian key file")
	guardianSignCmd.Flags().StringVar(&guardianRequest, "request", "", "JSON creation request file")
	_ = guardianSignCmd.MarkFlagRequired("request")

	guardianCmd.AddCommand(guardianKeygenCmd, guardianSignCmd)
}
