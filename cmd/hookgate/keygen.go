package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/hookgate/internal/adapters/hooks/apikey"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen <api-key>",
	Short: "Hash an API key for an apikey hook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyHash := apikey.Hash(args[0])
		w := cmd.OutOrStdout()

		fmt.Fprintf(w, "SHA-256 Hash: %s\n", keyHash)
		fmt.Fprintln(w, "\nAdd this to your config.yaml:")
		fmt.Fprintln(w, "  hooks:")
		fmt.Fprintln(w, "    before:")
		fmt.Fprintln(w, "      - name: api-key")
		fmt.Fprintln(w, "        type: apikey")
		fmt.Fprintln(w, "        key_hashes:")
		fmt.Fprintf(w, "          - %q\n", keyHash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
