package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/theloz33-bot/jino-ai-interviewer/internal/interview"
)

const (
	CategoryBasics     = "기본소양"
	CategoryKnowledge  = "업무지식"
	CategoryAspiration = "포부"
)

// BankQuestion is one entry of the fixed question bank.
type BankQuestion struct {
	Category string
	Prompt   interview.LocalizedText
}

// DefaultBank is the nine-question technical sales interview (solar inverter distribution).
var DefaultBank = []BankQuestion{
	{CategoryBasics, interview.LocalizedText{
		interview.LangKO: "1분 동안 자기소개를 해주시고, 본인의 강점 두 가지를 말씀해 주세요.",
		interview.LangVI: "Hãy giới thiệu bản thân trong một phút và nêu hai điểm mạnh của bạn.",
	}},
	{CategoryBasics, interview.LocalizedText{
		interview.LangKO: "상대를 설득하거나 갈등을 해결했던 경험을 상황-과제-행동-결과(STAR) 순서로 설명해 주세요.",
		interview.LangVI: "Hãy kể về một lần bạn thuyết phục ai đó hoặc giải quyết mâu thuẫn theo trình tự Tình huống - Nhiệm vụ - Hành động - Kết quả (STAR).",
	}},
	{CategoryBasics, interview.LocalizedText{
		interview.LangKO: "고객의 니즈를 파악할 때 어떤 질문을 하고 어떤 순서로 진행하시나요?",
		interview.LangVI: "Khi tìm hiểu nhu cầu của khách hàng, bạn đặt những câu hỏi nào và tiến hành theo trình tự ra sao?",
	}},
	{CategoryKnowledge, interview.LocalizedText{
		interview.LangKO: "태양광 발전에서 인버터의 역할을 30초 안에 설명해 주세요.",
		interview.LangVI: "Hãy giải thích vai trò của biến tần trong hệ thống điện mặt trời trong vòng 30 giây.",
	}},
	{CategoryKnowledge, interview.LocalizedText{
		interview.LangKO: "인버터를 제안할 때 확인해야 할 스펙과 조건은 무엇이며, 우선순위는 어떻게 정하시나요?",
		interview.LangVI: "Khi đề xuất biến tần, bạn cần kiểm tra những thông số và điều kiện nào, và ưu tiên chúng ra sao?",
	}},
	{CategoryKnowledge, interview.LocalizedText{
		interview.LangKO: "현장에서 알람이나 트립이 반복될 때 원인 분석과 고객 커뮤니케이션을 어떻게 하시겠습니까?",
		interview.LangVI: "Khi tại công trình liên tục xảy ra cảnh báo hoặc ngắt (trip), bạn sẽ phân tích nguyên nhân và trao đổi với khách hàng như thế nào?",
	}},
	{CategoryKnowledge, interview.LocalizedText{
		interview.LangKO: "제조사, 대리점, EPC, 발전사업자 사이의 이해관계를 어떻게 조율하시겠습니까?",
		interview.LangVI: "Bạn sẽ điều phối lợi ích giữa nhà sản xuất, đại lý, nhà thầu EPC và chủ đầu tư dự án như thế nào?",
	}},
	{CategoryAspiration, interview.LocalizedText{
		interview.LangKO: "입사 후 3개월, 6개월, 12개월 목표를 KPI로 말씀해 주세요.",
		interview.LangVI: "Hãy nêu mục tiêu của bạn sau 3, 6 và 12 tháng làm việc dưới dạng KPI.",
	}},
	{CategoryBasics, interview.LocalizedText{
		interview.LangKO: "본인의 약점 한 가지와 이를 개선하기 위해 하고 있는 행동을 말씀해 주세요.",
		interview.LangVI: "Hãy nêu một điểm yếu của bạn và những hành động bạn đang làm để cải thiện nó.",
	}},
}

// DefaultFollowup is asked whenever a clarifying question is needed.
var DefaultFollowup = interview.LocalizedText{
	interview.LangKO: "조금 더 구체적으로 말씀해 주시겠어요? 실제 사례나 수치, 결과를 포함해 주세요.",
	interview.LangVI: "Bạn có thể nói cụ thể hơn không? Hãy kèm theo ví dụ thực tế, số liệu hoặc kết quả.",
}

// Bank serves questions from a fixed list and produces a simple report. It
// needs no network access and backs the interview when no AI provider is configured.
type Bank struct {
	questions []BankQuestion
	followup  interview.LocalizedText
}

// NewBank returns a Bank over questions, or DefaultBank when empty.
func NewBank(questions []BankQuestion) *Bank {
	if len(questions) == 0 {
		questions = DefaultBank
	}
	return &Bank{questions: questions, followup: DefaultFollowup}
}

// Len returns the number of questions in the bank.
func (b *Bank) Len() int {
	return len(b.questions)
}

// GenerateQuestion returns the bank entry for the session's current index.
// Indices past the end of the bank wrap around.
func (b *Bank) GenerateQuestion(_ context.Context, snapshot *interview.Session, followup bool) (interview.QuestionResult, error) {
	if snapshot == nil {
		return interview.QuestionResult{}, fmt.Errorf("session snapshot is required")
	}

	qIndex := snapshot.State.CurrentQIndex
	if qIndex < 1 {
		qIndex = 1
	}

	entry := b.questions[(qIndex-1)%len(b.questions)]

	if followup {
		return interview.QuestionResult{
			Kind:     interview.KindFollowup,
			Prompt:   b.followup,
			QIndex:   qIndex,
			Category: entry.Category,
		}, nil
	}

	return interview.QuestionResult{
		Kind:     interview.KindQuestion,
		Prompt:   entry.Prompt,
		QIndex:   qIndex,
		Category: entry.Category,
	}, nil
}

// Evaluate summarizes how many questions were answered and how many needed a follow-up.
func (b *Bank) Evaluate(_ context.Context, snapshot *interview.Session) (interview.EvaluationResult, error) {
	if snapshot == nil {
		return interview.EvaluationResult{}, fmt.Errorf("session snapshot is required")
	}

	answered, followups := 0, 0
	perCategory := map[string]int{}
	var order []string
	for _, item := range snapshot.QALog {
		if strings.TrimSpace(item.Answer) != "" {
			answered++
		}
		if item.Followup != nil && item.Followup.Asked {
			followups++
		}
		if _, seen := perCategory[item.Category]; !seen {
			order = append(order, item.Category)
		}
		perCategory[item.Category]++
	}

	var ko, vi strings.Builder
	ko.WriteString("# 면접 평가 리포트\n\n## 1. 총평\n")
	fmt.Fprintf(&ko, "- 전체 질문 %d개 중 %d개에 답변했습니다.\n", len(snapshot.QALog), answered)
	fmt.Fprintf(&ko, "- 꼬리질문이 필요했던 답변: %d개\n\n## 2. 범주별 질문 수\n", followups)
	vi.WriteString("# Báo cáo đánh giá phỏng vấn\n\n## 1. Tổng quan\n")
	fmt.Fprintf(&vi, "- Đã trả lời %d trên %d câu hỏi.\n", answered, len(snapshot.QALog))
	fmt.Fprintf(&vi, "- Số câu trả lời cần hỏi thêm: %d\n\n## 2. Số câu hỏi theo nhóm\n", followups)
	for _, category := range order {
		fmt.Fprintf(&ko, "- %s: %d\n", category, perCategory[category])
		fmt.Fprintf(&vi, "- %s: %d\n", category, perCategory[category])
	}

	return interview.EvaluationResult{
		Report: interview.LocalizedText{
			interview.LangKO: ko.String(),
			interview.LangVI: vi.String(),
		},
	}, nil
}
