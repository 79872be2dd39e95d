package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/formloom/formloom/internal/config"
	"github.com/formloom/formloom/internal/forms"
	"github.com/formloom/formloom/internal/store"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var (
		slug  string
		kind  string
		orgID string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new form",
		Long: `Create a new form in draft status.

Examples:
  formloom create "Contato"
  formloom create "Newsletter" --slug newsletter --kind newsletter
  formloom create "Onboarding" --kind multi_step`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if slug == "" {
				slug = forms.Slugify(name)
			}

			formKind := store.FormKind(kind)
			switch formKind {
			case store.KindEmbedded, store.KindPopup, store.KindNewsletter, store.KindMultiStep:
			default:
				return fmt.Errorf("invalid kind %q (embedded, popup, newsletter, multi_step)", kind)
			}

			return withStore(func(cfg *config.Config, s *store.SQLStore) error {
				form := &store.Form{
					ID:     uuid.NewString(),
					OrgID:  orgID,
					Name:   name,
					Slug:   slug,
					Kind:   formKind,
					Status: store.StatusDraft,
				}
				if err := s.CreateForm(context.Background(), form); err != nil {
					return fmt.Errorf("failed to create form: %w", err)
				}

				fmt.Printf("Created form '%s' (slug: %s, kind: %s)\n", form.Name, form.Slug, form.Kind)
				fmt.Println("Publish it with: formloom publish " + form.Slug)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&slug, "slug", "", "public slug (defaults to a slugified name)")
	cmd.Flags().StringVar(&kind, "kind", string(store.KindEmbedded), "form kind: embedded, popup, newsletter, multi_step")
	cmd.Flags().StringVar(&orgID, "org", "", "owning organization id")

	return cmd
}
