package interview

import (
	"context"
	"errors"
)

var (
	// ErrSessionNotFound is returned when the store has no session for the id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionLocked is returned when waiting for a session's lock was abandoned.
	ErrSessionLocked = errors.New("session is busy")
)

// Store persists sessions by id. Implementations hand out copies: mutating a
// returned session has no effect until it is passed to Save.
type Store interface {
	Create(ctx context.Context, userID string, settings Settings) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, session *Session) error
}

// QuestionKind tags a QuestionResult.
type QuestionKind string

const (
	KindQuestion QuestionKind = "question"
	KindFollowup QuestionKind = "followup"
	KindError    QuestionKind = "error"
)

// QuestionResult is the outcome of a question generation call. Kind
// KindError carries a user-facing message in Prompt and is never logged
// into the transcript.
type QuestionResult struct {
	Kind     QuestionKind
	Prompt   LocalizedText
	QIndex   int
	Category string
}

// Failed reports whether the result is the error sentinel.
func (r QuestionResult) Failed() bool {
	return r.Kind == KindError
}

// EvaluationResult is the outcome of an evaluation call. A failed evaluation
// still carries a localized message in Report.
type EvaluationResult struct {
	Report LocalizedText
	Failed bool
}

// QuestionService produces the next main question or a follow-up for the
// session snapshot it is given. The snapshot is a copy.
type QuestionService interface {
	GenerateQuestion(ctx context.Context, snapshot *Session, followup bool) (QuestionResult, error)
}

// EvaluationService turns a finished transcript into a report.
type EvaluationService interface {
	Evaluate(ctx context.Context, snapshot *Session) (EvaluationResult, error)
}

// Fallback messages used when a collaborator fails without a usable message.
var (
	QuestionFailureText = LocalizedText{
		LangKO: "죄송합니다. 잠시 문제가 발생했습니다. 다시 시도해주세요.",
		LangVI: "Xin lỗi, đã xảy ra lỗi.",
	}
	EvaluationFailureText = LocalizedText{
		LangKO: "죄송합니다. 평가 결과를 생성하는 중 오류가 발생했습니다.",
		LangVI: "Xin lỗi, đã xảy ra lỗi khi tạo kết quả đánh giá.",
	}
)
