package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/formloom/formloom/internal/abtest"
	"github.com/formloom/formloom/internal/config"
	"github.com/formloom/formloom/internal/store"
)

func init() {
	rootCmd.AddCommand(newWinnerCmd())
}

func newWinnerCmd() *cobra.Command {
	var letter string

	cmd := &cobra.Command{
		Use:   "winner <slug>",
		Short: "Declare a winner for a form's A/B test",
		Long: `Conclude the form's active A/B test with the given variant as winner.

From then on every visitor receives the winning variant.

Example:
  formloom winner contato --variant B`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]
			letter = strings.ToUpper(strings.TrimSpace(letter))

			return withStore(func(cfg *config.Config, s *store.SQLStore) error {
				ctx := context.Background()

				form, err := s.GetFormBySlug(ctx, slug)
				if err != nil {
					return fmt.Errorf("form '%s' not found", slug)
				}

				test, err := s.ActiveTest(ctx, form.ID)
				if err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("form '%s' has no active test", slug)
					}
					return fmt.Errorf("failed to get test: %w", err)
				}
				if test.Status == store.TestConcluded {
					return fmt.Errorf("test '%s' is already concluded", test.Name)
				}

				variants, err := s.ListVariants(ctx, test.ID)
				if err != nil {
					return fmt.Errorf("failed to list variants: %w", err)
				}

				var winner *store.Variant
				for i := range variants {
					if variants[i].Letter == letter {
						winner = &variants[i]
						break
					}
				}
				if winner == nil {
					return fmt.Errorf("test has no variant '%s'", letter)
				}

				svc := &abtest.Service{Store: s}
				if err := svc.Conclude(ctx, test.ID, winner.ID); err != nil {
					return fmt.Errorf("failed to conclude test: %w", err)
				}

				fmt.Printf("Declared winner for test '%s': variant %s (\"%s\")\n", test.Name, winner.Letter, winner.Name)
				fmt.Println("Every visitor now receives the winning variant.")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&letter, "variant", "v", "", "winning variant letter (required)")
	cmd.MarkFlagRequired("variant")

	return cmd
}
