package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/posix4e/ContactDedup/internal/merge"
	"github.com/posix4e/ContactDedup/internal/types"
)

var (
	mergeAll           bool
	mergeGroupIndex    int
	mergePrimaryID     string
	mergeMinConfidence string
	mergeDryRun        bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge detected duplicate groups",
	Long: `Re-run detection and merge duplicate groups into a single contact
per group.

Merging is lossless: all list fields are unioned, conflicting scalar
fields keep the primary's value and record the loser in the merged
contact's notes. The primary is the earliest-created record unless
--primary names one explicitly.

Merge a single group by number (as printed by detect), or everything at
or above a confidence band with --all.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if mergeAll == (mergeGroupIndex > 0) {
			fmt.Fprintf(os.Stderr, "Error: pass exactly one of --group or --all\n")
			os.Exit(1)
		}
		if mergeAll && mergePrimaryID != "" {
			fmt.Fprintf(os.Stderr, "Error: --primary only applies to a single --group merge\n")
			os.Exit(1)
		}

		store = openStore()
		defer store.Close()

		groups, err := runDetection(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: detection failed: %v\n", err)
			os.Exit(1)
		}
		if len(groups) == 0 {
			fmt.Println("No duplicate groups found, nothing to merge.")
			return
		}

		coordinator := merge.NewCoordinator(merge.NewEngine())

		if !mergeAll {
			if mergeGroupIndex > len(groups) {
				fmt.Fprintf(os.Stderr, "Error: group %d does not exist (%d groups detected)\n",
					mergeGroupIndex, len(groups))
				os.Exit(1)
			}
			group := groups[mergeGroupIndex-1]
			if err := mergeOneGroup(ctx, coordinator, group, mergePrimaryID); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		minConfidence := types.Confidence(mergeMinConfidence)
		var eligible []*types.DuplicateGroup
		for _, group := range groups {
			if types.ConfidenceForScore(group.Score()).AtLeast(minConfidence) {
				eligible = append(eligible, group)
			}
		}
		if len(eligible) == 0 {
			fmt.Printf("No groups at or above %q confidence.\n", minConfidence)
			return
		}

		var (
			mu     sync.Mutex
			merged int
		)
		g := new(errgroup.Group)
		g.SetLimit(cfg.MergeConcurrency)
		for _, group := range eligible {
			group := group
			g.Go(func() error {
				if err := mergeOneGroup(ctx, coordinator, group, ""); err != nil {
					return err
				}
				mu.Lock()
				merged++
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("\n%s Merged %d group(s)\n", green("✓"), merged)
	},
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeAll, "all", false, "merge every group at or above --min-confidence")
	mergeCmd.Flags().IntVar(&mergeGroupIndex, "group", 0, "group number to merge (as printed by detect)")
	mergeCmd.Flags().StringVar(&mergePrimaryID, "primary", "", "record ID to merge into (default: earliest created)")
	mergeCmd.Flags().StringVar(&mergeMinConfidence, "min-confidence", string(types.ConfidenceHigh),
		"lowest confidence band merged by --all")
	mergeCmd.Flags().BoolVar(&mergeDryRun, "dry-run", false, "show what would be merged without writing")
	rootCmd.AddCommand(mergeCmd)
}

// mergeOneGroup merges a group through the coordinator and persists the
// result: the merged record is saved and the absorbed records deleted.
func mergeOneGroup(ctx context.Context, coordinator *merge.Coordinator, group *types.DuplicateGroup, primaryID string) error {
	if primaryID == "" {
		primaryID = choosePrimary(group.Records).ID
	}

	merged, conflicts, err := coordinator.Merge(group.Records, primaryID)
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	action := "Merged"
	if mergeDryRun {
		action = "Would merge"
	}
	fmt.Printf("%s %s %d record(s) into %s %s\n",
		green("✓"), action, len(group.Records), merged.DisplayName(), gray("["+merged.ID+"]"))
	for _, conflict := range conflicts {
		fmt.Printf("  %s %s: kept primary value; %q preserved in notes\n",
			yellow("⚠"), conflict.Field, conflict.LosingValue)
	}

	if mergeDryRun {
		return nil
	}

	if err := store.Save(ctx, merged); err != nil {
		return fmt.Errorf("failed to save merged contact: %w", err)
	}
	for _, record := range group.Records {
		if record.ID == merged.ID {
			continue
		}
		if err := store.Delete(ctx, record.ID); err != nil {
			return fmt.Errorf("failed to remove absorbed contact %s: %w", record.ID, err)
		}
	}
	return nil
}
