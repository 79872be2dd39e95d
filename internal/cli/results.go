package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/formloom/formloom/internal/config"
	"github.com/formloom/formloom/internal/stats"
	"github.com/formloom/formloom/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results <slug>",
	Short: "Show funnel and A/B test results for a form",
	Long:  `Show the form's funnel and, when a test exists, per-variant conversion rates with confidence intervals.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	slug := args[0]

	return withStore(func(cfg *config.Config, s *store.SQLStore) error {
		ctx := context.Background()

		form, err := s.GetFormBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("form '%s' not found", slug)
			}
			return fmt.Errorf("failed to get form: %w", err)
		}

		funnel, err := s.FunnelStats(ctx, form.ID)
		if err != nil {
			return fmt.Errorf("failed to get funnel stats: %w", err)
		}

		fmt.Printf("FORM: %s\n", form.Name)
		fmt.Printf("STATUS: %s\n", form.Status)
		fmt.Printf("CREATED: %s\n", form.CreatedAt.Format("2006-01-02"))
		fmt.Println()
		fmt.Printf("FUNNEL: %d views -> %d starts -> %d submissions\n",
			funnel.Views, funnel.Starts, funnel.Submissions)

		test, err := s.ActiveTest(ctx, form.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("failed to get test: %w", err)
		}

		variants, err := s.ListVariants(ctx, test.ID)
		if err != nil {
			return fmt.Errorf("failed to list variants: %w", err)
		}

		result := stats.Analyze(test, variants)

		fmt.Println()
		fmt.Printf("TEST: %s (%s)\n", test.Name, test.Status)
		if test.Objective != "" {
			fmt.Printf("OBJECTIVE: %s\n", test.Objective)
		}
		fmt.Println()
		fmt.Println("VARIANT           IMPRESSIONS  CONVERSIONS  RATE     95% CI")
		fmt.Println(strings.Repeat("─", 66))

		for i, v := range result.Variants {
			indicator := ""
			if i == result.Leading && len(result.Variants) > 1 {
				indicator = " ← LEADING"
			}
			if v.Control {
				indicator += " (control)"
			}

			ciStr := fmt.Sprintf("[%.1f%%, %.1f%%]", v.CILower*100, v.CIUpper*100)
			if v.Impressions == 0 {
				ciStr = "N/A"
			}

			name := fmt.Sprintf("%s — %s", v.Letter, v.Name)
			if len(name) > 16 {
				name = name[:13] + "..."
			}

			fmt.Printf("%-16s  %-11d  %-11d  %-7s  %s%s\n",
				name, v.Impressions, v.Conversions, formatPercent(v.Rate), ciStr, indicator)
		}

		fmt.Println()
		if len(result.Variants) > 1 {
			leadingName := result.Variants[result.Leading].Name
			confPct := result.ConfidenceLevel * 100

			switch {
			case result.Confident && result.ReachedSample:
				fmt.Printf("Statistical significance: %.1f%% confident \"%s\" is the winner\n", confPct, leadingName)
			case result.Confident:
				fmt.Printf("Statistical significance: %.1f%% confident, but the minimum sample (%d conversions per variant) was not reached\n", confPct, test.MinSample)
			case confPct >= 90:
				fmt.Printf("Statistical significance: %.1f%% confident \"%s\" leads (not yet significant)\n", confPct, leadingName)
			default:
				fmt.Println("Statistical significance: Not enough data to determine a winner")
			}
		}

		return nil
	})
}

func formatPercent(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", rate*100)
}
