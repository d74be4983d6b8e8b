package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show contact store and configuration status",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store = openStore()
		defer store.Close()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== ContactDedup Status ==="))

		count, err := store.Count(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to count contacts: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s\n", yellow("Contact Store:"))
		fmt.Printf("  Database: %s\n", cfg.DatabasePath)
		fmt.Printf("  Contacts: %d\n", count)

		lastImport, err := store.GetConfig(ctx, "last_import")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if lastImport != "" {
			fmt.Printf("  Last import: %s\n", lastImport)
		} else {
			fmt.Printf("  Last import: %s\n", gray("never"))
		}
		fmt.Println()

		fmt.Printf("%s\n", yellow("Detection:"))
		fmt.Printf("  Name threshold: %.2f\n", cfg.Detection.NameThreshold)
		fmt.Printf("  Weights: name %.2f, email %.2f, phone %.2f, company %.2f\n",
			cfg.Detection.Weights.Name, cfg.Detection.Weights.Email,
			cfg.Detection.Weights.Phone, cfg.Detection.Weights.Company)
		if cfg.AIEnabled {
			model := cfg.AIModel
			if model == "" {
				model = "default"
			}
			fmt.Printf("  Semantic company scoring: enabled (%s)\n", model)
		} else {
			fmt.Printf("  Semantic company scoring: %s\n", gray("disabled"))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
