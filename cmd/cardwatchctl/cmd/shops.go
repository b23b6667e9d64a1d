package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardwatch/cardwatch/internal/catalog"
	"github.com/cardwatch/cardwatch/internal/config"
)

func shopsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shops",
		Short: "Inspect the shop catalog",
	}
	cmd.AddCommand(shopsListCmd())
	cmd.AddCommand(shopsValidateCmd())
	return cmd
}

func shopsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List shops in the catalog",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return err
			}
			cat, err := catalog.Load(cfg.Shops.Dir)
			if err != nil {
				return err
			}
			return printShops(cat.Shops)
		},
	}
}

func shopsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dir>",
		Short: "Load and validate a shop catalog directory without starting the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cat, err := catalog.Load(args[0])
			if err != nil {
				fatalf("catalog invalid: %v", err)
				return nil
			}
			fmt.Printf("catalog OK: %d shops, %d products\n", len(cat.Shops), len(cat.Products))
			return nil
		},
	}
}
