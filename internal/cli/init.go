package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Start the server with setup instructions",
	Long: `Start the formloom server and show integration instructions for your
framework.

Example:
  formloom init
  formloom init --port 8080`,
	RunE: runInitCmd,
}

func init() {
	initCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(initCmd)
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	framework, err := promptFramework()
	if err != nil {
		return err
	}

	printStartupInstructions(framework)

	return runServe(cmd, args)
}

func promptFramework() (string, error) {
	frameworks := []string{
		"HTML (vanilla JavaScript)",
		"React / Next.js",
		"Vue",
		"WordPress",
		"Other",
	}

	prompt := promptui.Select{
		Label: "Your framework",
		Items: frameworks,
		Size:  5,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			os.Exit(0)
		}
		return "", err
	}

	switch idx {
	case 1:
		return "react", nil
	case 2:
		return "vue", nil
	case 3:
		return "wordpress", nil
	default:
		return "html", nil
	}
}

func printStartupInstructions(framework string) {
	fmt.Println()
	fmt.Println(strings.Repeat("-", 60))
	fmt.Println()

	fmt.Println("1. Create and publish a form")
	fmt.Println()
	fmt.Println("   formloom create \"Contato\"")
	fmt.Println("   formloom publish contato")
	fmt.Println()

	fmt.Println("2. Deploy formloom to get a public URL")
	fmt.Println()
	fmt.Println("   Options: Fly.io, Cloudflare Tunnel, VPS with Caddy")
	fmt.Println()

	fmt.Println("3. Embed the form on your site")
	fmt.Println()
	printFrameworkExample(framework)
	fmt.Println()

	fmt.Println(strings.Repeat("-", 60))
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  list             List all forms")
	fmt.Println("  results <slug>   Show funnel and test statistics")
	fmt.Println("  winner <slug>    Declare an A/B test winner")
	fmt.Println("  export <slug>    Export submissions as CSV")
	fmt.Println("  snippet <slug>   Generate embed code")
	fmt.Println("  token            Show dashboard URL")
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()
}

func printFrameworkExample(framework string) {
	switch framework {
	case "react":
		fmt.Println(`   // Generate a component with:
   formloom snippet contato --framework react`)
	case "vue":
		fmt.Println(`   // Generate a component with:
   formloom snippet contato --framework vue`)
	case "wordpress":
		fmt.Println(`   // Generate a shortcode with:
   formloom snippet contato --framework wordpress`)
	default:
		fmt.Println(`   <div data-fl-mount="contato"></div>
   <script src="https://YOUR-URL/embed.js?form=contato&mode=inline" defer></script>`)
	}
}
