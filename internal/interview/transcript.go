package interview

import (
	"fmt"
	"strings"
)

// Transcript renders the qa_log as plain text using the Korean variant of
// each question, with follow-ups indented under their main question.
func (s *Session) Transcript() string {
	var b strings.Builder
	for _, item := range s.QALog {
		fmt.Fprintf(&b, "Q%d: %s\nA: %s\n", item.QIndex, item.Question.Get(LangKO), item.Answer)
		if item.Followup != nil && item.Followup.Asked {
			fmt.Fprintf(&b, "  (Follow-up Q): %s\n  (Follow-up A): %s\n", item.Followup.Question.Get(LangKO), item.Followup.Answer)
		}
	}
	return b.String()
}

// LastAnswer returns the answer the next question should react to. When a
// follow-up is requested that is the last main answer; otherwise the
// follow-up answer wins if one exists.
func (s *Session) LastAnswer(followup bool) string {
	last := s.LastItem()
	if last == nil {
		return ""
	}
	if followup {
		return last.Answer
	}
	if last.Followup != nil && last.Followup.Answer != "" {
		return last.Followup.Answer
	}
	return last.Answer
}
