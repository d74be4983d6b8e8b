package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/posix4e/ContactDedup/internal/dedup"
	"github.com/posix4e/ContactDedup/internal/types"
)

var detectMinConfidence string

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Scan the contact store for duplicate groups",
	Long: `Scan every contact in the store and report groups of likely
duplicates, strongest matches first.

Groups are classified by what matched (same email, same phone, similar
name) and bucketed into confidence bands. Use --min-confidence to hide
weaker groups.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store = openStore()
		defer store.Close()

		groups, err := runDetection(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: detection failed: %v\n", err)
			os.Exit(1)
		}

		minConfidence := types.Confidence(detectMinConfidence)
		shown := 0
		counts := make(map[types.Confidence]int)
		for _, group := range groups {
			confidence := types.ConfidenceForScore(group.Score())
			counts[confidence]++
			if !confidence.AtLeast(minConfidence) {
				continue
			}
			shown++
			printGroup(shown, group)
			fmt.Println()
		}

		printDetectionSummary(len(groups), shown, counts)
	},
}

func init() {
	detectCmd.Flags().StringVar(&detectMinConfidence, "min-confidence", string(types.ConfidenceLow),
		`lowest confidence band to show ("very high", "high", "medium", "low", "very low")`)
	rootCmd.AddCommand(detectCmd)
}

// runDetection loads the store's contacts and runs the detector with a
// progress line on stderr. Shared by detect, merge and review.
func runDetection(ctx context.Context) ([]*types.DuplicateGroup, error) {
	records, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	detector := buildDetector()
	progress := make(chan dedup.ProgressEvent, 16)

	var groups []*types.DuplicateGroup
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(progress)
		var detectErr error
		groups, detectErr = detector.Detect(gctx, records, progress)
		return detectErr
	})
	g.Go(func() error {
		for ev := range progress {
			fmt.Fprintf(os.Stderr, "\rScanning %d/%d (%s)        ", ev.Processed, ev.Total, ev.Label)
		}
		fmt.Fprintf(os.Stderr, "\r%40s\r", "")
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return groups, nil
}

func printDetectionSummary(total, shown int, counts map[types.Confidence]int) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("%s\n", cyan("=== Detection Summary ==="))
	if total == 0 {
		fmt.Printf("  %s\n", gray("No duplicate groups found"))
		return
	}
	for _, band := range []types.Confidence{
		types.ConfidenceVeryHigh,
		types.ConfidenceHigh,
		types.ConfidenceMedium,
		types.ConfidenceLow,
		types.ConfidenceVeryLow,
	} {
		if counts[band] == 0 {
			continue
		}
		paint := confidencePainter(band)
		fmt.Printf("  %s %d group(s)\n", paint(fmt.Sprintf("%-10s", band)), counts[band])
	}
	if hidden := total - shown; hidden > 0 {
		fmt.Printf("  %s\n", gray(fmt.Sprintf("%d group(s) below --min-confidence", hidden)))
	}
}
