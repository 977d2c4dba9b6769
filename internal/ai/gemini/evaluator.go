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

//go:embed prompts/evaluator.md
var evaluatorTemplate string

type reportPayload struct {
	ReportMarkdown map[string]string `mapstructure:"report_markdown"`
}

// Evaluator turns a finished transcript into a bilingual markdown report.
type Evaluator struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

// NewEvaluator returns an evaluation service backed by generator.
func NewEvaluator(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Evaluator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Evaluator{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Evaluate never returns an error for model failures; those yield a failed
// result carrying the localized failure message.
func (e *Evaluator) Evaluate(ctx context.Context, snapshot *interview.Session) (interview.EvaluationResult, error) {
	if snapshot == nil {
		return interview.EvaluationResult{}, fmt.Errorf("session snapshot is required")
	}

	prompt := buildEvaluatorPrompt(snapshot)

	e.logger.Debug("gemini evaluation request",
		zap.String("session_id", snapshot.ID),
		zap.Int("qa_items", len(snapshot.QALog)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, evaluatorSystem, prompt)
	if err != nil {
		e.logger.Warn("gemini evaluation failed", zap.String("session_id", snapshot.ID), zap.Error(err))
		return failedEvaluation(), nil
	}

	e.logger.Debug("gemini evaluation response",
		zap.String("session_id", snapshot.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	report, err := parseReport(raw)
	if err != nil {
		e.logger.Warn("gemini evaluation response unusable", zap.String("session_id", snapshot.ID), zap.Error(err))
		return failedEvaluation(), nil
	}

	return interview.EvaluationResult{Report: report}, nil
}

func buildEvaluatorPrompt(s *interview.Session) string {
	return renderTemplate(evaluatorTemplate, map[string]string{
		"MAX_QUESTIONS": itoa(s.Settings.MaxQuestions),
		"DIFFICULTY":    s.Settings.Difficulty,
		"QA_HISTORY":    strings.TrimSpace(s.Transcript()),
	})
}

func parseReport(raw string) (interview.LocalizedText, error) {
	var payload reportPayload
	if err := decodeResponse(raw, &payload); err != nil {
		return nil, err
	}

	report := interview.LocalizedText{}
	for lang, text := range payload.ReportMarkdown {
		report[strings.ToLower(strings.TrimSpace(lang))] = strings.TrimSpace(text)
	}
	if !report.Complete() {
		return nil, fmt.Errorf("report_markdown must contain both %s and %s", interview.LangKO, interview.LangVI)
	}
	return report, nil
}

func failedEvaluation() interview.EvaluationResult {
	return interview.EvaluationResult{Report: interview.EvaluationFailureText, Failed: true}
}
