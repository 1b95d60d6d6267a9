package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/imagechat/internal/adapter/llm"
	"github.com/xiaot623/gogo/imagechat/internal/config"
	"github.com/xiaot623/gogo/imagechat/internal/domain"
)

var checkAPIKey string

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify an API key against the configured endpoint",
	Long: `Check lists the models visible to the given API key and confirms that
the configured chat and speech models are among them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		factory := llm.NewFactory(cfg.LLMMode, cfg.OpenAIBaseURL, cfg.CompletionTimeout)
		return runCheck(cmd.Context(), cmd.OutOrStdout(), cfg, factory, checkAPIKey)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkAPIKey, "api-key", "", "API key to verify")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(ctx context.Context, w io.Writer, cfg *config.Config, factory llm.ClientFactory, apiKey string) error {
	fmt.Fprintln(w, sectionStyle.Render("imagechat check"))
	fmt.Fprintln(w)

	if apiKey == "" {
		fmt.Fprintln(w, errorStyle.Render("No API key given (--api-key)"))
		return domain.ErrConfiguration
	}

	fmt.Fprintln(w, infoStyle.Render("Listing models at "+cfg.OpenAIBaseURL+"..."))
	models, err := factory(apiKey).ListModels(ctx)
	if err != nil {
		fmt.Fprintln(w, errorStyle.Render("Request failed:"), err)
		return &domain.TransportError{Op: "models", Err: err}
	}
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("Key accepted, %d models visible", len(models))))

	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	for _, want := range []string{cfg.ChatModel, cfg.SpeechModel} {
		if slices.Contains(ids, want) {
			fmt.Fprintln(w, successStyle.Render("  found "+want))
		} else {
			fmt.Fprintln(w, warningStyle.Render("  missing "+want))
		}
	}
	return nil
}
