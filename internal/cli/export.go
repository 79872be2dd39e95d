package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/formloom/formloom/internal/config"
	"github.com/formloom/formloom/internal/store"
)

const exportBatchSize = 500

func init() {
	rootCmd.AddCommand(newExportCmd())
}

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <slug>",
		Short: "Export a form's submissions as CSV",
		Long: `Export all submissions for a form as CSV, one column per input field.

Examples:
  formloom export contato
  formloom export contato --output contato.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]

			return withStore(func(cfg *config.Config, s *store.SQLStore) error {
				ctx := context.Background()

				form, err := s.GetFormBySlug(ctx, slug)
				if err != nil {
					return fmt.Errorf("form '%s' not found", slug)
				}

				fields, err := s.ListFields(ctx, form.ID)
				if err != nil {
					return fmt.Errorf("failed to list fields: %w", err)
				}
				var inputFields []store.Field
				for _, f := range fields {
					if !f.Type.IsLayout() {
						inputFields = append(inputFields, f)
					}
				}
				sort.SliceStable(inputFields, func(i, j int) bool {
					return inputFields[i].SortOrder < inputFields[j].SortOrder
				})

				out := cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create output file: %w", err)
					}
					defer f.Close()
					out = f
				}

				w := csv.NewWriter(out)
				header := []string{"id", "created_at", "visitor_id", "variant_id"}
				for _, f := range inputFields {
					header = append(header, f.Name)
				}
				if err := w.Write(header); err != nil {
					return fmt.Errorf("failed to write csv header: %w", err)
				}

				total := 0
				for offset := 0; ; offset += exportBatchSize {
					subs, err := s.ListSubmissions(ctx, form.ID, exportBatchSize, offset)
					if err != nil {
						return fmt.Errorf("failed to list submissions: %w", err)
					}
					for _, sub := range subs {
						row := []string{sub.ID, sub.CreatedAt.Format(time.RFC3339), sub.VisitorID, sub.VariantID}
						for _, f := range inputFields {
							row = append(row, sub.Data[f.ID])
						}
						if err := w.Write(row); err != nil {
							return fmt.Errorf("failed to write csv row: %w", err)
						}
					}
					total += len(subs)
					if len(subs) < exportBatchSize {
						break
					}
				}
				w.Flush()
				if err := w.Error(); err != nil {
					return fmt.Errorf("failed to flush csv: %w", err)
				}

				if output != "" {
					fmt.Printf("Exported %d submissions to %s\n", total, output)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (defaults to stdout)")

	return cmd
}
