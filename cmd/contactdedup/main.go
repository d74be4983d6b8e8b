// Command contactdedup finds duplicate contacts in a local contact store
// and merges them without losing data.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/posix4e/ContactDedup/internal/ai"
	"github.com/posix4e/ContactDedup/internal/config"
	"github.com/posix4e/ContactDedup/internal/dedup"
	"github.com/posix4e/ContactDedup/internal/similarity"
	"github.com/posix4e/ContactDedup/internal/storage/sqlite"
	"github.com/posix4e/ContactDedup/internal/types"
)

var (
	cfgPath string
	cfg     *config.Config
	store   *sqlite.Store
)

var rootCmd = &cobra.Command{
	Use:   "contactdedup",
	Short: "Find and merge duplicate contacts",
	Long: `contactdedup detects duplicate contacts in a local SQLite contact
store and merges them losslessly: every email, phone, address and note of
every duplicate survives the merge, and conflicting fields are preserved
in the merged contact's notes.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		fmt.Sprintf("config file path (default %s)", config.DefaultPath))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore opens the contact database named by the config. The caller
// owns the returned store; commands defer store.Close().
func openStore() *sqlite.Store {
	s, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open contact store: %v\n", err)
		os.Exit(1)
	}
	return s
}

// buildDetector assembles the detector from the loaded config, attaching
// the Anthropic company matcher when enabled.
func buildDetector() *dedup.Detector {
	var opts []dedup.Option
	if cfg.AIEnabled {
		matcher, err := ai.NewCompanyMatcher(ai.CompanyMatcherConfig{Model: cfg.AIModel})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: semantic company scoring disabled: %v\n", err)
		} else {
			opts = append(opts, dedup.WithCompanyMatcher(matcher))
		}
	}

	detector, err := dedup.New(similarity.NewEngine(), cfg.Detection, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return detector
}

// confidencePainter returns the sprint function used for a confidence band.
func confidencePainter(c types.Confidence) func(a ...interface{}) string {
	switch c {
	case types.ConfidenceVeryHigh:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	case types.ConfidenceHigh:
		return color.New(color.FgGreen).SprintFunc()
	case types.ConfidenceMedium:
		return color.New(color.FgYellow).SprintFunc()
	case types.ConfidenceLow:
		return color.New(color.FgHiBlack).SprintFunc()
	default:
		return color.New(color.FgHiBlack).SprintFunc()
	}
}

// printGroup renders one duplicate group with its members.
func printGroup(index int, group *types.DuplicateGroup) {
	confidence := types.ConfidenceForScore(group.Score())
	paint := confidencePainter(confidence)

	fmt.Printf("%s %s (%s, score %.2f)\n",
		paint(fmt.Sprintf("Group %d:", index)),
		group.MatchType, confidence, group.Score())
	for _, record := range group.Records {
		detail := ""
		if len(record.Emails) > 0 {
			detail = record.Emails[0]
		} else if len(record.Phones) > 0 {
			detail = record.Phones[0]
		}
		if detail != "" {
			detail = "  <" + detail + ">"
		}
		fmt.Printf("  - %s%s  [%s]\n", record.DisplayName(), detail, record.ID)
	}
	if company, ok := group.AuxScores[types.AuxScoreCompany]; ok {
		fmt.Printf("  company similarity: %.2f\n", company)
	}
}

// choosePrimary picks the merge primary: the earliest-created record,
// tie-broken by ID so the choice is stable.
func choosePrimary(records []*types.ContactRecord) *types.ContactRecord {
	primary := records[0]
	for _, record := range records[1:] {
		if record.CreatedAt.Before(primary.CreatedAt) ||
			(record.CreatedAt.Equal(primary.CreatedAt) && record.ID < primary.ID) {
			primary = record
		}
	}
	return primary
}
