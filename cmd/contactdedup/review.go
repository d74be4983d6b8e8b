package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/posix4e/ContactDedup/internal/merge"
	"github.com/posix4e/ContactDedup/internal/similarity"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review duplicate groups interactively",
	Long: `Step through detected duplicate groups one at a time and decide
each interactively:

  merge (m)  merge the group into its earliest-created record
  skip  (s)  leave the group untouched
  quit  (q)  stop reviewing`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store = openStore()
		defer store.Close()

		groups, err := runDetection(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: detection failed: %v\n", err)
			os.Exit(1)
		}
		if len(groups) == 0 {
			fmt.Println("No duplicate groups found.")
			return
		}

		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "review> ",
			InterruptPrompt: "^C",
			EOFPrompt:       "quit",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create readline: %v\n", err)
			os.Exit(1)
		}
		defer rl.Close()

		engine := similarity.NewEngine()
		coordinator := merge.NewCoordinator(merge.NewEngine())
		gray := color.New(color.FgHiBlack).SprintFunc()

		merged, skipped := 0, 0
	review:
		for i, group := range groups {
			fmt.Printf("\n%s\n", gray(fmt.Sprintf("--- group %d of %d ---", i+1, len(groups))))
			printGroup(i+1, group)

			// For name-based pairs, show how the names relate with first
			// and last components considered in both orders.
			if len(group.Records) == 2 {
				a, b := group.Records[0], group.Records[1]
				combined := engine.CombinedNameSimilarity(a.FirstName, a.LastName, b.FirstName, b.LastName)
				fmt.Printf("  name similarity (order-tolerant): %.2f\n", combined)
			}

			for {
				line, err := rl.Readline()
				if err == readline.ErrInterrupt || err == io.EOF {
					break review
				}
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					os.Exit(1)
				}

				switch strings.ToLower(strings.TrimSpace(line)) {
				case "m", "merge":
					if err := mergeOneGroup(ctx, coordinator, group, ""); err != nil {
						fmt.Fprintf(os.Stderr, "Error: %v\n", err)
						os.Exit(1)
					}
					merged++
				case "s", "skip", "":
					skipped++
				case "q", "quit", "exit":
					break review
				default:
					fmt.Println("Commands: merge (m), skip (s), quit (q)")
					continue
				}
				break
			}
		}

		fmt.Printf("\nReview finished: %d merged, %d skipped, %d not seen.\n",
			merged, skipped, len(groups)-merged-skipped)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}
