package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/formloom/formloom/internal/config"
	"github.com/formloom/formloom/internal/snippets"
	"github.com/formloom/formloom/internal/store"
)

func init() {
	rootCmd.AddCommand(newSnippetCmd())
}

func newSnippetCmd() *cobra.Command {
	var (
		framework string
		mode      string
		serverURL string
		outDir    string
	)

	cmd := &cobra.Command{
		Use:   "snippet <slug>",
		Short: "Generate embed code for a form",
		Long: `Generate copy-paste embed code for a form.

Frameworks: html, react, nextjs, vue, wordpress
Modes: inline, modal, sidebar

Examples:
  formloom snippet contato
  formloom snippet contato --framework react --out ./snippets
  formloom snippet contato --mode modal --server https://forms.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := args[0]

			return withStore(func(cfg *config.Config, s *store.SQLStore) error {
				form, err := s.GetFormBySlug(context.Background(), slug)
				if err != nil {
					return fmt.Errorf("form '%s' not found", slug)
				}

				url := serverURL
				if url == "" {
					url = cfg.Server.PublicURL
				}
				if url == "" {
					url = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
				}

				files, err := snippets.Generate(snippets.Framework(framework), snippets.Config{
					Slug:      form.Slug,
					ServerURL: url,
					Mode:      mode,
				})
				if err != nil {
					return fmt.Errorf("failed to generate snippet: %w", err)
				}

				if outDir == "" {
					for _, f := range files {
						fmt.Printf("--- %s ---\n%s\n", f.Filename, f.Content)
					}
					return nil
				}

				if err := os.MkdirAll(outDir, 0755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
				for _, f := range files {
					path := filepath.Join(outDir, f.Filename)
					if err := os.WriteFile(path, []byte(f.Content), 0644); err != nil {
						return fmt.Errorf("failed to write %s: %w", path, err)
					}
					fmt.Printf("Wrote %s\n", path)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&framework, "framework", "f", "html", "target framework")
	cmd.Flags().StringVarP(&mode, "mode", "m", "inline", "embed mode: inline, modal, sidebar")
	cmd.Flags().StringVar(&serverURL, "server", "", "public server URL (defaults to config)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "write files to this directory instead of stdout")

	return cmd
}
