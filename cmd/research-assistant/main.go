package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mikeboe/research-assistant/pkg/clients"
	"github.com/mikeboe/research-assistant/pkg/config"
	"github.com/mikeboe/research-assistant/pkg/literature"
	"github.com/mikeboe/research-assistant/pkg/llm"
	"github.com/mikeboe/research-assistant/pkg/research"
)

func main() {
	config.LoadDotEnv()

	if err := newRootCmd(config.NewViper()).Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var (
		topic     string
		selection string
	)

	rootCmd := &cobra.Command{
		Use:   "research-assistant",
		Short: "A terminal-based literature research assistant",
		Long: `research-assistant walks a research question through the workflow
Start -> Clarify -> Research -> Analyze -> Synthesize -> Conclude,
searching PubMed and summarising the papers you select.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			logger := slog.New(cfg.LogHandler(os.Stderr))
			slog.SetDefault(logger)

			if err := cfg.Validate(); err != nil {
				return err
			}

			in := bufio.NewReader(cmd.InOrStdin())
			if !cmd.Flags().Changed("topic") {
				fmt.Fprint(cmd.OutOrStdout(), "Enter research topic: ")
				line, _ := in.ReadString('\n')
				topic = strings.TrimSpace(line)
			}
			if strings.TrimSpace(topic) == "" {
				return fmt.Errorf("topic cannot be empty")
			}

			engine, err := newEngine(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			logger.Info("Starting research", "topic", topic, "provider", cfg.LLMProvider)
			return newSession(engine, in, cmd.OutOrStdout(), selection).run(cmd.Context(), topic)
		},
	}

	rootCmd.Flags().StringVarP(&topic, "topic", "t", "", "The research topic")
	rootCmd.Flags().StringVarP(&selection, "select", "s", "", `Papers to analyze, e.g. "1,3-5" or "all"`)

	rootCmd.PersistentFlags().String("provider", "", "LLM provider: openai, anthropic, googleai or gemini")
	rootCmd.PersistentFlags().String("model", "", "Model name (defaults per provider)")
	rootCmd.PersistentFlags().Int("max-results", 0, "Maximum number of papers to fetch")
	bindFlag(v, rootCmd, config.KeyLLMProvider, "provider")
	bindFlag(v, rootCmd, config.KeyLLMModel, "model")
	bindFlag(v, rootCmd, config.KeyMaxResults, "max-results")

	rootCmd.AddCommand(newStagesCmd())
	return rootCmd
}

func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

func newStagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages",
		Short: "Print the workflow stages and their steps",
		Run: func(cmd *cobra.Command, args []string) {
			printStages(cmd.OutOrStdout())
		},
	}
}

func printStages(w io.Writer) {
	for _, s := range research.Stages() {
		if s == research.StageEnd {
			fmt.Fprintf(w, "%s\n", s)
		} else {
			fmt.Fprintf(w, "%s -> %s\n", s, research.NextStage(s))
		}
		for _, step := range research.Substeps(s) {
			fmt.Fprintf(w, "    - %s\n", step)
		}
	}
	fmt.Fprintf(w, "%s (reported when a stage rejects its input)\n", research.StageError)
}

func newEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*research.Engine, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	model, err := clients.New(ctx, cfg.LLMOptions())
	if err != nil {
		return nil, err
	}

	searcher := literature.New(literature.Config{
		APIKey:     cfg.NCBIAPIKey,
		Email:      cfg.NCBIEmail,
		HTTPClient: &http.Client{Timeout: cfg.LiteratureTimeout},
		Logger:     logger,
	})
	return research.NewEngine(
		research.Config{MaxResults: cfg.MaxResults},
		llm.NewAdapter(model, logger),
		searcher,
		logger,
	), nil
}
