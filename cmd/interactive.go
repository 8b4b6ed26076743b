package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pdfchat-quiz/internal/assistant"
	"pdfchat-quiz/internal/models"
	"pdfchat-quiz/internal/quiz"
	"pdfchat-quiz/internal/rag"
	"pdfchat-quiz/internal/session"
)

var optionLetters = [models.OptionCount]string{"A", "B", "C", "D"}

func printResponse(cmd *cobra.Command, response *models.PromptResponse, showSources bool) {
	out := cmd.OutOrStdout()
	if showSources {
		log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		for _, source := range response.Sources {
			fmt.Fprintf(out, "[%s %.3f]\n%s\n\n", source.ID(), source.Similarity, source.Content)
		}
	}
	if rag.NotInContext(response.Content) {
		color.New(color.FgYellow).Fprintf(out, "%s\n\n", response.Content)
		return
	}
	fmt.Fprintf(out, "%s\n\n", response.Content)
}

// readLine returns the next trimmed line; io.EOF when input ends.
func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// parseOption accepts a letter A-D or a number 1-4.
func parseOption(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, letter := range optionLetters {
		if s == letter || s == strconv.Itoa(i+1) {
			return i, true
		}
	}
	return 0, false
}

func runQuiz(ctx context.Context, cmd *cobra.Command, a *assistant.Assistant, sess *session.Session, count int, level models.Difficulty) error {
	q, err := a.GenerateQuiz(ctx, sess, count, level)
	if err != nil {
		return err
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("the model returned no usable questions, try again")
	}
	if len(q.Questions) < q.Requested {
		log.Warn().Int("requested", q.Requested).Int("generated", len(q.Questions)).Msg("Fewer questions than requested")
	}

	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())
questions:
	for i, question := range q.Questions {
		fmt.Fprintf(out, "\nQuestion %d: %s\n", i+1, question.Question)
		for j, option := range question.Options {
			fmt.Fprintf(out, "  %s) %s\n", optionLetters[j], option)
		}
		for {
			fmt.Fprint(out, "Your answer (A-D, empty to skip): ")
			line, err := readLine(in)
			if errors.Is(err, io.EOF) {
				// remaining questions stay unanswered
				break questions
			}
			if err != nil {
				return err
			}
			if line == "" {
				break
			}
			option, ok := parseOption(line)
			if !ok {
				continue
			}
			if err := a.SelectAnswer(sess, i, option); err != nil {
				return err
			}
			break
		}
	}

	score, err := a.SubmitQuiz(sess)
	if err != nil {
		return err
	}
	printScore(out, score)
	return nil
}

func printScore(out io.Writer, score quiz.Score) {
	scoreColor := color.New(color.FgRed, color.Bold)
	switch {
	case score.Percentage >= 70:
		scoreColor = color.New(color.FgGreen, color.Bold)
	case score.Percentage >= 40:
		scoreColor = color.New(color.FgYellow, color.Bold)
	}
	fmt.Fprintln(out)
	scoreColor.Fprintln(out, score.String())

	fmt.Fprintln(out, "\nAnswer key:")
	for i, r := range score.Results {
		answer := "Not answered"
		if r.SelectedText != "" {
			answer = r.SelectedText
		}
		mark := color.GreenString("Correct")
		if !r.IsCorrect {
			mark = color.RedString("Incorrect")
		}
		fmt.Fprintf(out, "Question %d: %s\n  Correct answer: %s\n  Your answer: %s\n  Result: %s\n",
			i+1, r.Question, r.CorrectText, answer, mark)
	}
}

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <file>...",
		Short: "Index documents and chat with them interactively",
		Long: `Indexes the given documents into a new session and reads questions
from standard input. Commands:
  :quiz [count] [difficulty]  generate and take a quiz
  :history                    print the transcript
  :reset                      clear the session and exit
  :quit                       exit`,
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

			store := session.NewStore(cfg.RAG.IndexDir, cfg.Session.TTL(), a.IndexStore())
			sess, err := store.Create()
			if err != nil {
				return err
			}
			// sessions of the interactive chat are not resumable
			defer store.Delete(sess.ID)

			result, err := a.ProcessDocuments(ctx, sess, docs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d files into %d chunks. Ask away.\n", len(result.Files), result.Chunks)

			return chatLoop(ctx, cmd, a, store, sess.ID)
		},
	}
	return cmd
}

func chatLoop(ctx context.Context, cmd *cobra.Command, a *assistant.Assistant, store *session.Store, id string) error {
	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		line, err := readLine(in)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		sess, ok := store.Get(id)
		if !ok {
			return fmt.Errorf("session %s expired", id)
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case ":quit", ":q":
			return nil
		case ":reset":
			return a.Reset(sess)
		case ":history":
			for _, exchange := range sess.Transcript {
				fmt.Fprintf(out, "Q: %s\nA: %s\n\n", exchange.Question, exchange.Answer)
			}
		case ":quiz":
			count, level, err := parseQuizArgs(fields[1:])
			if err == nil {
				err = runQuiz(ctx, cmd, a, sess, count, level)
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
			}
		default:
			response, err := a.Ask(ctx, sess, line)
			if err != nil {
				fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
				continue
			}
			printResponse(cmd, response, false)
		}
	}
}

func parseQuizArgs(args []string) (int, models.Difficulty, error) {
	count := cfg.Quiz.DefaultCount
	difficulty := cfg.Quiz.DefaultDifficulty
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return 0, "", fmt.Errorf("invalid question count %q", args[0])
		}
		count = n
	}
	if len(args) > 1 {
		difficulty = args[1]
	}
	level, err := models.ParseDifficulty(difficulty)
	if err != nil {
		return 0, "", err
	}
	return count, level, nil
}
