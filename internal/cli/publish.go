package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/formloom/formloom/internal/config"
	"github.com/formloom/formloom/internal/store"
)

func init() {
	rootCmd.AddCommand(newPublishCmd())
	rootCmd.AddCommand(newArchiveCmd())
}

func newPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <slug>",
		Short: "Publish a form",
		Long: `Publish a form so the public runtime serves it.

Example:
  formloom publish contato`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setStatusBySlug(args[0], store.StatusPublished)
		},
	}
}

func newArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <slug>",
		Short: "Archive a form",
		Long:  `Archive a form. The public runtime stops serving it immediately.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setStatusBySlug(args[0], store.StatusArchived)
		},
	}
}

func setStatusBySlug(slug string, status store.FormStatus) error {
	return withStore(func(cfg *config.Config, s *store.SQLStore) error {
		ctx := context.Background()

		form, err := s.GetFormBySlug(ctx, slug)
		if err != nil {
			return fmt.Errorf("form '%s' not found", slug)
		}
		if err := s.SetFormStatus(ctx, form.ID, status); err != nil {
			return fmt.Errorf("failed to update form status: %w", err)
		}

		fmt.Printf("Form '%s' is now %s.\n", form.Name, status)
		if status == store.StatusPublished {
			fmt.Println("Embed it with: formloom snippet " + slug)
		}
		return nil
	})
}
