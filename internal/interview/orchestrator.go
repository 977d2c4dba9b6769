package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/theloz33-bot/jino-ai-interviewer/internal/logger"
)

// ResponseKind tags what the orchestrator produced for one inbound message.
type ResponseKind string

const (
	ResponseQuestion ResponseKind = "question"
	ResponseFollowup ResponseKind = "followup"
	ResponseError    ResponseKind = "error"
	ResponseReport   ResponseKind = "report"
)

// Response is the result of a single transition.
type Response struct {
	SessionID string
	Kind      ResponseKind
	QIndex    int
	Category  string
	Text      LocalizedText
}

// Orchestrator drives the interview state machine. Each Process call loads
// one session, applies one transition on a private copy and saves it only
// when the transition completed.
type Orchestrator struct {
	store     Store
	questions QuestionService
	evaluator EvaluationService
	settings  Settings
	locks     *keyedLocker
	logger    *zap.Logger
}

// NewOrchestrator wires the orchestrator. settings are applied to sessions created by Start.
func NewOrchestrator(store Store, questions QuestionService, evaluator EvaluationService, settings Settings, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}

	return &Orchestrator{
		store:     store,
		questions: questions,
		evaluator: evaluator,
		settings:  settings,
		locks:     newKeyedLocker(),
		logger:    log,
	}
}

// Start creates a session for userID and asks its first question.
func (o *Orchestrator) Start(ctx context.Context, userID string) (*Response, error) {
	session, err := o.store.Create(ctx, userID, o.settings)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	o.logger.Info("session created",
		append(logger.SessionFields(session.ID, string(session.State.Phase), session.State.CurrentQIndex),
			zap.String("user_id", userID),
			zap.Int("max_questions", session.Settings.MaxQuestions),
		)...,
	)

	return o.Process(ctx, session.ID, "")
}

// Session returns a copy of the stored session.
func (o *Orchestrator) Session(ctx context.Context, sessionID string) (*Session, error) {
	return o.store.Get(ctx, sessionID)
}

// Process applies message to the session. It returns ErrSessionNotFound
// (wrapped) when the id is unknown. Collaborator failures are reported
// through the response, never as errors.
func (o *Orchestrator) Process(ctx context.Context, sessionID, message string) (*Response, error) {
	unlock, err := o.locks.Lock(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionLocked, err)
	}
	defer unlock()

	stored, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	log := o.logger.With(logger.SessionFields(stored.ID, string(stored.State.Phase), stored.State.CurrentQIndex)...)

	if stored.Done() {
		log.Debug("session already completed, replaying report")
		return reportResponse(stored), nil
	}

	session := stored.Clone()
	resp, commit := o.transition(ctx, session, message, log)
	if !commit {
		return resp, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("persist session %s: %w", sessionID, err)
	}

	session.UpdatedAt = time.Now().UTC()
	if err := o.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sessionID, err)
	}

	log.Debug("session saved",
		zap.String("next_phase", string(session.State.Phase)),
		zap.Int("next_q_index", session.State.CurrentQIndex),
		zap.Bool("followup_pending", session.State.FollowupUsedForCurrentQ),
		zap.Int("qa_log_len", len(session.QALog)),
	)

	return resp, nil
}

// transition mutates s and reports whether the result must be persisted.
func (o *Orchestrator) transition(ctx context.Context, s *Session, message string, log *zap.Logger) (*Response, bool) {
	if len(s.QALog) == 0 {
		return o.askFirst(ctx, s, log)
	}

	last := s.LastItem()
	if last.Followup.Pending() {
		if message == "" {
			log.Debug("empty follow-up answer ignored")
			return questionResponse(s.ID, ResponseFollowup, last.QIndex, last.Category, last.Followup.Question), false
		}
		last.Followup.Answer = message
		s.State.FollowupUsedForCurrentQ = false
		s.State.CurrentQIndex++
	} else {
		last.Answer = message
		if IsAmbiguous(message) && !s.State.FollowupUsedForCurrentQ {
			log.Info("answer looks ambiguous, requesting follow-up", zap.Int("answer_length", len([]rune(message))))
			s.State.FollowupUsedForCurrentQ = true
		} else {
			s.State.CurrentQIndex++
			s.State.FollowupUsedForCurrentQ = false
		}
	}

	if s.State.CurrentQIndex > s.Settings.MaxQuestions && !s.State.FollowupUsedForCurrentQ {
		return o.evaluate(ctx, s, log), true
	}

	return o.askNext(ctx, s, log)
}

func (o *Orchestrator) askFirst(ctx context.Context, s *Session, log *zap.Logger) (*Response, bool) {
	result := o.generate(ctx, s, false, log)
	if result.Failed() {
		return questionResponse(s.ID, ResponseError, s.State.CurrentQIndex, "", result.Prompt), false
	}

	qIndex := result.QIndex
	if qIndex < 1 || qIndex > s.Settings.MaxQuestions {
		qIndex = s.State.CurrentQIndex
	}

	s.QALog = append(s.QALog, QAItem{
		QIndex:   qIndex,
		Category: result.Category,
		Question: result.Prompt,
	})
	s.State.CurrentQIndex = qIndex

	log.Info("first question asked", zap.Int("q_index", qIndex), zap.String("category", result.Category))

	return questionResponse(s.ID, ResponseQuestion, qIndex, result.Category, result.Prompt), true
}

func (o *Orchestrator) askNext(ctx context.Context, s *Session, log *zap.Logger) (*Response, bool) {
	followup := s.State.FollowupUsedForCurrentQ
	result := o.generate(ctx, s, followup, log)
	if result.Failed() {
		return questionResponse(s.ID, ResponseError, s.LastItem().QIndex, "", result.Prompt), false
	}

	if followup {
		last := s.LastItem()
		last.Followup = &Followup{Question: result.Prompt, Asked: true}
		log.Info("follow-up asked", zap.Int("q_index", last.QIndex))
		return questionResponse(s.ID, ResponseFollowup, last.QIndex, last.Category, result.Prompt), true
	}

	if s.State.Phase != PhaseInterview {
		return questionResponse(s.ID, ResponseError, s.LastItem().QIndex, "", QuestionFailureText), false
	}

	item := QAItem{
		QIndex:   s.State.CurrentQIndex,
		Category: result.Category,
		Question: result.Prompt,
	}
	s.QALog = append(s.QALog, item)

	log.Info("question asked", zap.Int("q_index", item.QIndex), zap.String("category", item.Category))

	return questionResponse(s.ID, ResponseQuestion, item.QIndex, item.Category, item.Question), true
}

// generate calls the question service on a snapshot and folds every failure
// mode into the error sentinel.
func (o *Orchestrator) generate(ctx context.Context, s *Session, followup bool, log *zap.Logger) QuestionResult {
	result, err := o.questions.GenerateQuestion(ctx, s.Clone(), followup)
	if err != nil {
		log.Warn("question generation failed", zap.Bool("followup", followup), zap.Error(err))
		return QuestionResult{Kind: KindError, Prompt: QuestionFailureText}
	}

	if result.Kind == "" {
		result.Kind = KindQuestion
		if followup {
			result.Kind = KindFollowup
		}
	}

	switch result.Kind {
	case KindError:
		log.Warn("question service returned an error result", zap.Bool("followup", followup))
		if !result.Prompt.Complete() {
			result.Prompt = QuestionFailureText
		}
		return result
	case KindQuestion, KindFollowup:
	default:
		log.Warn("question service returned an unknown kind", zap.String("kind", string(result.Kind)))
		return QuestionResult{Kind: KindError, Prompt: QuestionFailureText}
	}

	if !result.Prompt.Complete() {
		log.Warn("question service returned an incomplete prompt",
			zap.Bool("has_ko", result.Prompt.Get(LangKO) != ""),
			zap.Bool("has_vi", result.Prompt.Get(LangVI) != ""),
		)
		return QuestionResult{Kind: KindError, Prompt: QuestionFailureText}
	}

	result.Category = strings.TrimSpace(result.Category)
	return result
}

func (o *Orchestrator) evaluate(ctx context.Context, s *Session, log *zap.Logger) *Response {
	s.State.Phase = PhaseEvaluation
	log.Info("question budget exhausted, evaluating", zap.Int("answered", len(s.QALog)))

	result, err := o.evaluator.Evaluate(ctx, s.Clone())
	switch {
	case err != nil:
		log.Warn("evaluation failed", zap.Error(err))
		result = EvaluationResult{Report: EvaluationFailureText, Failed: true}
	case !result.Report.Complete():
		log.Warn("evaluation returned an incomplete report", zap.Bool("failed", result.Failed))
		result = EvaluationResult{Report: EvaluationFailureText, Failed: true}
	case result.Failed:
		log.Warn("evaluation service returned a failure report")
	}

	s.Report = result.Report.clone()
	s.State.Phase = PhaseDone
	s.State.Completed = true

	return reportResponse(s)
}

func questionResponse(sessionID string, kind ResponseKind, qIndex int, category string, prompt LocalizedText) *Response {
	return &Response{
		SessionID: sessionID,
		Kind:      kind,
		QIndex:    qIndex,
		Category:  category,
		Text:      prompt.clone(),
	}
}

func reportResponse(s *Session) *Response {
	report := s.Report
	if !report.Complete() {
		report = EvaluationFailureText
	}
	return &Response{
		SessionID: s.ID,
		Kind:      ResponseReport,
		Text:      report.clone(),
	}
}

// IsNotFound reports whether err means the session does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
