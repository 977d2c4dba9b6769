package interview

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Language tags every collaborator output must carry.
const (
	LangKO = "ko"
	LangVI = "vi"
)

// AmbiguityThreshold is the rune count below which a non-empty main answer asks for a follow-up.
const AmbiguityThreshold = 10

// Phase is the coarse stage of a session. It only moves forward.
type Phase string

const (
	PhaseInterview  Phase = "interview"
	PhaseEvaluation Phase = "evaluation"
	PhaseDone       Phase = "done"
)

// Settings are fixed when the session is created.
type Settings struct {
	MaxQuestions int    `json:"max_questions" bson:"max_questions"`
	Difficulty   string `json:"difficulty" bson:"difficulty"`
}

// DefaultSettings mirrors the stock interview: nine questions, medium difficulty.
func DefaultSettings() Settings {
	return Settings{MaxQuestions: 9, Difficulty: "medium"}
}

// State tracks where the session is in the question sequence.
type State struct {
	Phase                   Phase `json:"phase" bson:"phase"`
	CurrentQIndex           int   `json:"current_q_index" bson:"current_q_index"`
	FollowupUsedForCurrentQ bool  `json:"followup_used_for_current_q" bson:"followup_used_for_current_q"`
	Completed               bool  `json:"completed" bson:"completed"`
}

// LocalizedText maps a language tag to its content.
type LocalizedText map[string]string

// Get returns the trimmed content for lang, or an empty string.
func (t LocalizedText) Get(lang string) string {
	if t == nil {
		return ""
	}
	return strings.TrimSpace(t[lang])
}

// Complete reports whether every language in langs has non-blank content.
// With no arguments both required languages are checked.
func (t LocalizedText) Complete(langs ...string) bool {
	if len(langs) == 0 {
		langs = []string{LangKO, LangVI}
	}
	for _, lang := range langs {
		if t.Get(lang) == "" {
			return false
		}
	}
	return true
}

func (t LocalizedText) clone() LocalizedText {
	if t == nil {
		return nil
	}
	out := make(LocalizedText, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Followup is the single clarifying question attached to a main question.
type Followup struct {
	Question LocalizedText `json:"question" bson:"question"`
	Answer   string        `json:"answer" bson:"answer"`
	Asked    bool          `json:"asked" bson:"asked"`
}

// Pending reports whether the follow-up was asked and still waits for an answer.
func (f *Followup) Pending() bool {
	return f != nil && f.Asked && f.Answer == ""
}

// QAItem is one main question with its answer and optional follow-up.
type QAItem struct {
	QIndex   int           `json:"q_index" bson:"q_index"`
	Category string        `json:"category" bson:"category"`
	Question LocalizedText `json:"question" bson:"question"`
	Answer   string        `json:"answer" bson:"answer"`
	Followup *Followup     `json:"followup,omitempty" bson:"followup,omitempty"`
}

func (q QAItem) clone() QAItem {
	out := q
	out.Question = q.Question.clone()
	if q.Followup != nil {
		f := *q.Followup
		f.Question = q.Followup.Question.clone()
		out.Followup = &f
	}
	return out
}

// Session is a single interview attempt.
type Session struct {
	ID        string        `json:"session_id" bson:"_id"`
	UserID    string        `json:"user_id" bson:"user_id"`
	Settings  Settings      `json:"settings" bson:"settings"`
	State     State         `json:"state" bson:"state"`
	QALog     []QAItem      `json:"qa_log" bson:"qa_log"`
	Report    LocalizedText `json:"report,omitempty" bson:"report,omitempty"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" bson:"updated_at"`
}

// NewSession returns a session in the fresh interview state.
// Non-positive MaxQuestions falls back to the default.
func NewSession(id, userID string, settings Settings) *Session {
	if settings.MaxQuestions <= 0 {
		settings.MaxQuestions = DefaultSettings().MaxQuestions
	}
	if strings.TrimSpace(settings.Difficulty) == "" {
		settings.Difficulty = DefaultSettings().Difficulty
	}

	now := time.Now().UTC()
	return &Session{
		ID:       id,
		UserID:   userID,
		Settings: settings,
		State: State{
			Phase:         PhaseInterview,
			CurrentQIndex: 1,
		},
		QALog:     []QAItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.QALog = make([]QAItem, len(s.QALog))
	for i, item := range s.QALog {
		out.QALog[i] = item.clone()
	}
	out.Report = s.Report.clone()
	return &out
}

// LastItem returns the most recent QAItem or nil when nothing was asked yet.
func (s *Session) LastItem() *QAItem {
	if len(s.QALog) == 0 {
		return nil
	}
	return &s.QALog[len(s.QALog)-1]
}

// PendingFollowup reports whether the last question's follow-up waits for an answer.
func (s *Session) PendingFollowup() bool {
	last := s.LastItem()
	return last != nil && last.Followup.Pending()
}

// Done reports whether the session reached its terminal phase.
func (s *Session) Done() bool {
	return s.State.Phase == PhaseDone
}

// IsAmbiguous classifies an answer as too thin: strictly between zero and
// AmbiguityThreshold runes. An empty answer is not ambiguous.
func IsAmbiguous(answer string) bool {
	n := utf8.RuneCountInString(answer)
	return n > 0 && n < AmbiguityThreshold
}
