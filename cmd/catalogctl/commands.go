package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"concierge/internal/app"
	"concierge/internal/config"
	"concierge/internal/logger"
	"concierge/internal/service"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var vocabularyFile string

	cmd := &cobra.Command{
		Use:          "catalogctl",
		Short:        "Maintain the off-plan catalogue used by the property concierge",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&vocabularyFile, "vocabulary", "", "Vocabulary file overriding VOCABULARY_FILE")

	cmd.AddCommand(
		newReindexCmd(&vocabularyFile),
		newProvisionIndexCmd(&vocabularyFile),
		newExtractCmd(&vocabularyFile),
	)
	return cmd
}

func newReindexCmd(vocabularyFile *string) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Embed every project and area that has no embedding yet",
		Long: `Select projects and areas whose embedding column is NULL, compute an
embedding for each and store it. Rows that fail are reported and left NULL,
so running the command again retries only those rows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *vocabularyFile, func(ctx context.Context, a *app.App) error {
				report, err := a.Indexer.Reindex(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), report)
				}
				out := cmd.OutOrStdout()
				for _, step := range report.Steps {
					fmt.Fprintln(out, step)
				}
				for _, f := range report.Projects.Failed {
					fmt.Fprintf(out, "  project %s: %s\n", f.ID, f.Reason)
				}
				for _, f := range report.Areas.Failed {
					fmt.Fprintf(out, "  area %s: %s\n", f.ID, f.Reason)
				}
				fmt.Fprintf(out, "Done in %dms\n", report.Took)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	return cmd
}

func newProvisionIndexCmd(vocabularyFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision-index",
		Short: "Create the vector extension, embedding columns and HNSW indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *vocabularyFile, func(ctx context.Context, a *app.App) error {
				report, err := a.Indexer.ProvisionIndex(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, step := range report.Steps {
					fmt.Fprintln(out, step)
				}
				v := report.Verification
				fmt.Fprintf(out, "extension=%t projects.embedding=%t areas.embedding=%t\n", v.Extension, v.ProjectsColumn, v.AreasColumn)
				if !v.OK() {
					return fmt.Errorf("verification failed")
				}
				return nil
			})
		},
	}
	return cmd
}

// newExtractCmd runs only the intent extractor; it needs no database.
func newExtractCmd(vocabularyFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <message>",
		Short: "Print the structured filter extracted from a chat message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *vocabularyFile
			if path == "" {
				path = config.VocabularyFileFromEnv()
			}
			vocab, err := config.LoadVocabulary(path)
			if err != nil {
				return err
			}
			filter := service.NewIntentExtractor(vocab).Extract(strings.Join(args, " "))
			return writeJSON(cmd.OutOrStdout(), filter)
		},
	}
	return cmd
}

func withApp(ctx context.Context, vocabularyFile string, fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if vocabularyFile != "" {
		cfg.VocabularyFile = vocabularyFile
	}

	log := logger.NewStructured(cfg.Logging.Level, "console")
	defer func() { _ = log.Sync() }()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
