package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pdfchat-quiz/internal/assistant"
	"pdfchat-quiz/internal/config"
	"pdfchat-quiz/internal/helper"
	"pdfchat-quiz/internal/logger"
	"pdfchat-quiz/internal/models"
	"pdfchat-quiz/internal/session"
)

const defaultConfigFilePath = "./configs/config.yaml"

var (
	configPath string
	sessionID  string
	cfg        *config.Config
)

func main() {
	root := &cobra.Command{
		Use:           "pdfchat-quiz",
		Short:         "Chat with your documents and quiz yourself on them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger.Setup(cfg.Log)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigFilePath, "path to config.yaml")

	root.AddCommand(processCmd())
	root.AddCommand(askCmd())
	root.AddCommand(quizCmd())
	root.AddCommand(clearCmd())
	root.AddCommand(chatCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		if models.IsRetryable(err) {
			fmt.Fprintln(os.Stderr, "The model did not answer in time, please try again.")
		}
		os.Exit(1)
	}
}

// signalContext is cancelled on interrupt
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newAssistant(ctx context.Context) (*assistant.Assistant, error) {
	a, err := assistant.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize assistant: %w", err)
	}
	return a, nil
}

// openSession returns the session given by --session, failing if none was given.
func openSession() (*session.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("--session is required")
	}
	return session.Open(cfg.RAG.IndexDir, sessionID)
}

func readDocuments(paths []string) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		docs = append(docs, models.Document{Filename: filepath.Base(path), Data: data})
	}
	return docs, nil
}

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <file>...",
		Short: "Extract, chunk and index documents",
		Long: `Indexes the given documents into a session. Without --session a new
session is created and its id printed; with --session the session's
previous index is replaced.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			docs, err := readDocuments(args)
			if err != nil {
				return err
			}
			a, err := newAssistant(ctx)
			if err != nil {
				return err
			}

			var sess *session.Session
			if sessionID != "" {
				sess, err = session.Open(cfg.RAG.IndexDir, sessionID)
			} else {
				sess, err = session.New(cfg.RAG.IndexDir)
			}
			if err != nil {
				return err
			}

			result, err := a.ProcessDocuments(ctx, sess, docs)
			if err != nil {
				return err
			}
			helper.PrettyPrint(struct {
				Session string `json:"session"`
				*assistant.ProcessResult
			}{sess.ID, result})
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id to re-index")
	return cmd
}

func askCmd() *cobra.Command {
	var showSources bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from a session's documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			sess, err := openSession()
			if err != nil {
				return err
			}
			a, err := newAssistant(ctx)
			if err != nil {
				return err
			}

			response, err := a.Ask(ctx, sess, args[0])
			if err != nil {
				return err
			}
			printResponse(cmd, response, showSources)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id returned by process")
	cmd.Flags().BoolVar(&showSources, "sources", false, "print the retrieved chunks")
	return cmd
}

func quizCmd() *cobra.Command {
	var (
		count      int
		difficulty string
	)
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Generate a multiple-choice quiz and take it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			if difficulty == "" {
				difficulty = cfg.Quiz.DefaultDifficulty
			}
			level, err := models.ParseDifficulty(difficulty)
			if err != nil {
				return err
			}
			sess, err := openSession()
			if err != nil {
				return err
			}
			a, err := newAssistant(ctx)
			if err != nil {
				return err
			}
			if err := a.Resume(ctx, sess); err != nil {
				return err
			}
			return runQuiz(ctx, cmd, a, sess, count, level)
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id returned by process")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of questions (default from config)")
	cmd.Flags().StringVarP(&difficulty, "difficulty", "d", "", "Easy, Medium or Hard (default from config)")
	return cmd
}

func clearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete a session's index",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			a, err := newAssistant(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Reset(sess); err != nil {
				return err
			}
			log.Info().Str("session", sess.ID).Msg("Cleared session")
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id returned by process")
	return cmd
}
