package gemini

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/theloz33-bot/jino-ai-interviewer/internal/interview"
	"github.com/theloz33-bot/jino-ai-interviewer/internal/utils"
)

const (
	interviewerSystem = "You are a bilingual (Korean/Vietnamese) job interviewer. Reply with a single JSON object and nothing else."
	evaluatorSystem   = "You are a bilingual (Korean/Vietnamese) interview evaluator. Reply with a single JSON object and nothing else."

	defaultMaxLogLength = 200
)

//go:embed prompts/interviewer.md
var interviewerTemplate string

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

type questionPayload struct {
	Type     string            `mapstructure:"type"`
	QIndex   int               `mapstructure:"q_index"`
	Category string            `mapstructure:"category"`
	Prompt   map[string]string `mapstructure:"prompt"`
}

// Interviewer generates main questions and follow-ups with Gemini.
type Interviewer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

// NewInterviewer returns a question service backed by generator.
func NewInterviewer(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Interviewer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Interviewer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// GenerateQuestion asks Gemini for the next question. Generator and parse
// failures come back as the error sentinel, not as an error.
func (i *Interviewer) GenerateQuestion(ctx context.Context, snapshot *interview.Session, followup bool) (interview.QuestionResult, error) {
	if snapshot == nil {
		return interview.QuestionResult{}, fmt.Errorf("session snapshot is required")
	}

	prompt := buildInterviewerPrompt(snapshot, followup)
	current := snapshot.State.CurrentQIndex

	i.logger.Debug("gemini question request",
		zap.String("session_id", snapshot.ID),
		zap.Int("q_index", current),
		zap.Bool("followup", followup),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, i.maxLogLen)),
	)

	raw, err := i.generator.GenerateContent(ctx, interviewerSystem, prompt)
	if err != nil {
		i.logger.Warn("gemini question generation failed", zap.String("session_id", snapshot.ID), zap.Error(err))
		return errorQuestion(current), nil
	}

	i.logger.Debug("gemini question response",
		zap.String("session_id", snapshot.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, i.maxLogLen)),
	)

	result, err := parseQuestion(raw, current, followup)
	if err != nil {
		i.logger.Warn("gemini question response unusable", zap.String("session_id", snapshot.ID), zap.Error(err))
		return errorQuestion(current), nil
	}

	return result, nil
}

func buildInterviewerPrompt(s *interview.Session, followup bool) string {
	history := strings.TrimSpace(s.Transcript())
	if history == "" {
		history = "(없음)"
	}
	last := strings.TrimSpace(s.LastAnswer(followup))
	if last == "" {
		last = "(없음)"
	}

	return renderTemplate(interviewerTemplate, map[string]string{
		"MAX_QUESTIONS":    itoa(s.Settings.MaxQuestions),
		"DIFFICULTY":       s.Settings.Difficulty,
		"CURRENT_Q_INDEX":  itoa(s.State.CurrentQIndex),
		"QA_HISTORY":       history,
		"LAST_ANSWER":      last,
		"FOLLOWUP_REQUEST": yesNo(followup),
	})
}

func parseQuestion(raw string, current int, followup bool) (interview.QuestionResult, error) {
	var payload questionPayload
	if err := decodeResponse(raw, &payload); err != nil {
		return interview.QuestionResult{}, err
	}

	if strings.EqualFold(strings.TrimSpace(payload.Type), string(interview.KindError)) {
		return errorQuestion(current), nil
	}

	prompt := interview.LocalizedText{}
	for lang, text := range payload.Prompt {
		prompt[strings.ToLower(strings.TrimSpace(lang))] = strings.TrimSpace(text)
	}
	if !prompt.Complete() {
		return interview.QuestionResult{}, fmt.Errorf("prompt must contain both %s and %s", interview.LangKO, interview.LangVI)
	}

	kind := interview.KindQuestion
	if followup {
		kind = interview.KindFollowup
	}

	qIndex := payload.QIndex
	if qIndex <= 0 {
		qIndex = current
	}

	category := strings.TrimSpace(payload.Category)
	if category == "" {
		category = "General"
	}

	return interview.QuestionResult{
		Kind:     kind,
		Prompt:   prompt,
		QIndex:   qIndex,
		Category: category,
	}, nil
}

func errorQuestion(current int) interview.QuestionResult {
	return interview.QuestionResult{
		Kind:     interview.KindError,
		Prompt:   interview.QuestionFailureText,
		QIndex:   current,
		Category: "Error",
	}
}
