package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/formloom/formloom/internal/config"
	"github.com/formloom/formloom/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all forms",
	Long:  `List all forms with their status and funnel numbers.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	return withStore(func(cfg *config.Config, s *store.SQLStore) error {
		ctx := context.Background()

		forms, err := s.ListForms(ctx, "")
		if err != nil {
			return fmt.Errorf("failed to list forms: %w", err)
		}

		if len(forms) == 0 {
			fmt.Println("No forms yet.")
			fmt.Println()
			fmt.Println("Create one with: formloom create \"My form\"")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSLUG\tKIND\tSTATUS\tVIEWS\tSUBMISSIONS\tCREATED")

		for _, form := range forms {
			funnel, err := s.FunnelStats(ctx, form.ID)
			if err != nil {
				return fmt.Errorf("failed to get stats for form %s: %w", form.Slug, err)
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				form.Name,
				form.Slug,
				form.Kind,
				strings.ToUpper(string(form.Status)),
				funnel.Views,
				funnel.Submissions,
				form.CreatedAt.Format("2006-01-02"),
			)
		}

		w.Flush()
		return nil
	})
}
