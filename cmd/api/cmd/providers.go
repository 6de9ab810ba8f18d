package cmd

import (
	"fmt"
	"strings"

	"github.com/securedocs/backend/internal/providers"
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect remote storage providers",
}

var providersTestCmd = &cobra.Command{
	Use:   "test [name]",
	Short: "Check provider credentials; tests every provider when no name is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		names := make([]string, 0, len(providers.Kinds))
		if len(args) == 1 {
			names = append(names, args[0])
		} else {
			for _, kind := range providers.Kinds {
				names = append(names, string(kind))
			}
		}

		var failed []string
		out := cmd.OutOrStdout()
		for _, name := range names {
			client, ok := a.Registry.Lookup(name)
			if !ok {
				return fmt.Errorf("%w: %q", providers.ErrUnknownProvider, name)
			}

			status := client.TestConnection(cmd.Context())
			result := "ok"
			if !status.OK {
				result = "FAILED"
				failed = append(failed, client.Name())
			}
			fmt.Fprintf(out, "%-8s %-6s %s\n", client.Name(), result, status.Message)
		}

		if len(failed) > 0 {
			return fmt.Errorf("connection test failed for %s", strings.Join(failed, ", "))
		}
		return nil
	},
}

func init() {
	providersCmd.AddCommand(providersTestCmd)
}
