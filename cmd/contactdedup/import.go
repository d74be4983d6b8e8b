package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/posix4e/ContactDedup/internal/storage"
	csvsource "github.com/posix4e/ContactDedup/internal/storage/csv"
	"github.com/posix4e/ContactDedup/internal/types"
)

var importCmd = &cobra.Command{
	Use:   "import <connections.csv>",
	Short: "Import a connections CSV export into the contact store",
	Long: `Import contacts from a connections CSV export.

Rows carrying a profile URL are keyed by it: re-importing a newer export
updates those contacts in place instead of duplicating them. Rows without
a URL are always inserted as new contacts.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store = openStore()
		defer store.Close()

		reader, closeFile, err := csvsource.Open(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer closeFile()

		inserted, updated := 0, 0
		for {
			record, err := reader.Next(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to read CSV: %v\n", err)
				os.Exit(1)
			}

			externalID, hasExternalID := record.ExternalID(types.SourceCSV)
			if hasExternalID {
				existing, err := store.FindByExternalID(ctx, types.SourceCSV, externalID)
				if err != nil && !errors.Is(err, storage.ErrNotFound) {
					fmt.Fprintf(os.Stderr, "Error: lookup failed: %v\n", err)
					os.Exit(1)
				}
				if err == nil {
					// Keep the stored identity, refresh the fields.
					record.ID = existing.ID
					record.CreatedAt = existing.CreatedAt
					if err := store.Save(ctx, record); err != nil {
						fmt.Fprintf(os.Stderr, "Error: failed to update contact: %v\n", err)
						os.Exit(1)
					}
					updated++
					continue
				}
			}

			if err := store.Save(ctx, record); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to save contact: %v\n", err)
				os.Exit(1)
			}
			inserted++
		}

		if err := store.SetConfig(ctx, "last_import", time.Now().Format(time.RFC3339)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to record import time: %v\n", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Imported %d new contact(s), updated %d existing.\n",
			green("✓"), inserted, updated)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
