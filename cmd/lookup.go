package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/cl-postal-codes/internal/lookup"
)

func newLookupCmd() *cobra.Command {
	var q lookup.Query
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Resolve one address and print it as JSON",
		Example: `  postal-codes lookup --commune Providencia --street "Avenida Providencia" --number 1860`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			addr, err := appInstance.Finder().FindOrScrape(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("lookup: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(addr); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Commune, "commune", "", "commune name, e.g. Providencia")
	cmd.Flags().StringVar(&q.Street, "street", "", "street name")
	cmd.Flags().StringVar(&q.Number, "number", "", "street number")
	return cmd
}
