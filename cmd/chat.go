package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/theloz33-bot/jino-ai-interviewer/internal/interview"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interview in the terminal",
	Run: func(_ *cobra.Command, _ []string) {
		chat()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("user", "u", "", "user id for the new session")
	viper.BindPFlag("interview.user-id", chatCmd.Flags().Lookup("user"))
}

func chat() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApplication(ctx)
	defer a.close(context.Background())

	resp, err := a.orchestrator.Start(ctx, a.userID())
	if err != nil {
		a.logger.Fatal("starting the interview", zap.Error(err))
	}

	a.logger.Debug("interview started", zap.String("session_id", resp.SessionID))

	// An error response leaves the session untouched, so a retry resends the last answer.
	var last string
	for {
		printResponse(resp)
		if resp.Kind == interview.ResponseReport {
			return
		}

		answer, err := readAnswer(resp)
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				a.logger.Info("interview aborted", zap.String("session_id", resp.SessionID))
				return
			}
			a.logger.Fatal("reading the answer", zap.Error(err))
		}
		if resp.Kind == interview.ResponseError {
			answer = last
		}
		last = answer

		sessionID := resp.SessionID
		resp, err = a.orchestrator.Process(ctx, sessionID, answer)
		if err != nil {
			a.logger.Fatal("processing the answer", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
}

func printResponse(resp *interview.Response) {
	switch resp.Kind {
	case interview.ResponseReport:
		fmt.Printf("\n%s\n", resp.Text.Get(interview.LangKO))
	case interview.ResponseError:
		fmt.Printf("\n! %s\n  %s\n", resp.Text.Get(interview.LangKO), resp.Text.Get(interview.LangVI))
	default:
		fmt.Printf("\n[Q%d] %s\n      %s\n", resp.QIndex, resp.Text.Get(interview.LangKO), resp.Text.Get(interview.LangVI))
	}
}

func readAnswer(resp *interview.Response) (string, error) {
	label := "Answer"
	switch resp.Kind {
	case interview.ResponseFollowup:
		label = "Follow-up answer"
	case interview.ResponseError:
		label = "Press ENTER to retry"
	}

	prompt := promptui.Prompt{Label: label}
	answer, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}
