package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/theloz33-bot/jino-ai-interviewer/internal/interview"
)

type fakeInterviewer struct {
	started   []string
	processed []string
	resp      *interview.Response
	err       error
	session   *interview.Session
}

func (f *fakeInterviewer) Start(_ context.Context, userID string) (*interview.Response, error) {
	f.started = append(f.started, userID)
	if f.err != nil {
		return nil, f.err
	}
	return &interview.Response{
		SessionID: "new-session",
		Kind:      interview.ResponseQuestion,
		QIndex:    1,
		Text:      interview.LocalizedText{interview.LangKO: "자기소개", interview.LangVI: "giới thiệu"},
	}, nil
}

func (f *fakeInterviewer) Process(_ context.Context, sessionID, message string) (*interview.Response, error) {
	f.processed = append(f.processed, sessionID+":"+message)
	return f.resp, f.err
}

func (f *fakeInterviewer) Session(_ context.Context, sessionID string) (*interview.Session, error) {
	if f.session == nil || f.session.ID != sessionID {
		return nil, fmt.Errorf("load %s: %w", sessionID, interview.ErrSessionNotFound)
	}
	return f.session, nil
}

func postChat(t *testing.T, h *ChatHandler, body string) (*httptest.ResponseRecorder, ChatResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	var out ChatResponse
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, out
}

func TestChatStartsSession(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "no session id", body: `{"message":"hello"}`},
		{name: "start word", body: `{"message":"START","session_id":"old"}`},
		{name: "korean start word", body: `{"message":" 시작 ","session_id":"old"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeInterviewer{}
			h := NewChatHandler(fake, "user1", []string{"start", "시작"}, zap.NewNop())

			rec, out := postChat(t, h, tc.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
			}
			if len(fake.started) != 1 || fake.started[0] != "user1" || len(fake.processed) != 0 {
				t.Fatalf("expected a single start, got %+v / %+v", fake.started, fake.processed)
			}
			want := ChatResponse{SessionID: "new-session", Type: TypeQuestion, KO: "[Q1] 자기소개", VI: "giới thiệu"}
			if out != want {
				t.Fatalf("unexpected envelope: %+v", out)
			}
		})
	}
}

func TestChatProcessesMessage(t *testing.T) {
	fake := &fakeInterviewer{resp: &interview.Response{
		SessionID: "s1",
		Kind:      interview.ResponseReport,
		Text:      interview.LocalizedText{interview.LangKO: "# 리포트", interview.LangVI: "# báo cáo"},
	}}
	h := NewChatHandler(fake, "user1", []string{"start"}, nil)

	rec, out := postChat(t, h, `{"message":"my answer","session_id":"s1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if len(fake.processed) != 1 || fake.processed[0] != "s1:my answer" {
		t.Fatalf("unexpected process calls: %+v", fake.processed)
	}
	if out.Type != TypeReport || out.KO != "# 리포트" || out.VI != "" {
		t.Fatalf("unexpected envelope: %+v", out)
	}
}

func TestChatUnknownSessionWaits(t *testing.T) {
	fake := &fakeInterviewer{err: fmt.Errorf("load session x: %w", interview.ErrSessionNotFound)}
	h := NewChatHandler(fake, "user1", nil, nil)

	rec, out := postChat(t, h, `{"message":"hi","session_id":"x"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	want := ChatResponse{SessionID: "x", Type: TypeWait, KO: "...", VI: ""}
	if out != want {
		t.Fatalf("unexpected envelope: %+v", out)
	}
}

func TestChatErrors(t *testing.T) {
	cases := []struct {
		name   string
		fake   *fakeInterviewer
		body   string
		status int
	}{
		{name: "bad json", fake: &fakeInterviewer{}, body: `{"message":`, status: http.StatusBadRequest},
		{name: "process failure", fake: &fakeInterviewer{err: errors.New("redis down")}, body: `{"message":"a","session_id":"s"}`, status: http.StatusInternalServerError},
		{name: "start failure", fake: &fakeInterviewer{err: errors.New("redis down")}, body: `{"message":"a"}`, status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewChatHandler(tc.fake, "user1", nil, nil)
			rec, _ := postChat(t, h, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
				t.Fatalf("expected error body, got %q (%v)", rec.Body.String(), err)
			}
		})
	}
}

func TestGetSession(t *testing.T) {
	fake := &fakeInterviewer{session: interview.NewSession("s1", "user1", interview.DefaultSettings())}
	h := NewChatHandler(fake, "user1", nil, nil)

	router := mux.NewRouter()
	router.HandleFunc("/api/sessions/{id}", h.GetSession)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/s1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["session_id"] != "s1" {
		t.Fatalf("unexpected body: %+v", got)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestEnvelope(t *testing.T) {
	text := interview.LocalizedText{interview.LangKO: "ko text", interview.LangVI: "vi text"}

	cases := []struct {
		kind interview.ResponseKind
		want ChatResponse
	}{
		{kind: interview.ResponseQuestion, want: ChatResponse{SessionID: "s", Type: TypeQuestion, KO: "[Q3] ko text", VI: "vi text"}},
		{kind: interview.ResponseFollowup, want: ChatResponse{SessionID: "s", Type: TypeQuestion, KO: "[Q3] ko text", VI: "vi text"}},
		{kind: interview.ResponseReport, want: ChatResponse{SessionID: "s", Type: TypeReport, KO: "ko text"}},
		{kind: interview.ResponseError, want: ChatResponse{SessionID: "s", Type: TypeError, KO: "ko text", VI: "vi text"}},
	}

	for _, tc := range cases {
		got := Envelope(&interview.Response{SessionID: "s", Kind: tc.kind, QIndex: 3, Text: text})
		if got != tc.want {
			t.Fatalf("%s: unexpected envelope %+v", tc.kind, got)
		}
	}
}
