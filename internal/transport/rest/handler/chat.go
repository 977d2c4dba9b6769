package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/theloz33-bot/jino-ai-interviewer/internal/interview"
)

// Envelope types sent to the client.
const (
	TypeQuestion = "question"
	TypeReport   = "report"
	TypeError    = "error"
	TypeWait     = "wait"
)

// Interviewer is the part of the orchestrator the HTTP layer needs.
type Interviewer interface {
	Start(ctx context.Context, userID string) (*interview.Response, error)
	Process(ctx context.Context, sessionID, message string) (*interview.Response, error)
	Session(ctx context.Context, sessionID string) (*interview.Session, error)
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the envelope returned for every chat turn.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Type      string `json:"type"`
	KO        string `json:"ko"`
	VI        string `json:"vi"`
}

// ChatHandler handles chat endpoints
type ChatHandler struct {
	interviewer Interviewer
	userID      string
	startWords  map[string]struct{}
	logger      *zap.Logger
}

// NewChatHandler creates a new chat handler. Messages equal to one of
// startWords (case-insensitive) begin a new session for userID.
func NewChatHandler(interviewer Interviewer, userID string, startWords []string, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	words := make(map[string]struct{}, len(startWords))
	for _, w := range startWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			words[w] = struct{}{}
		}
	}

	return &ChatHandler{
		interviewer: interviewer,
		userID:      userID,
		startWords:  words,
		logger:      logger,
	}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	sessionID := strings.TrimSpace(req.SessionID)

	if sessionID == "" || h.isStartWord(req.Message) {
		resp, err := h.interviewer.Start(ctx, h.userID)
		if err != nil {
			h.logger.Error("failed to start session", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to start session")
			return
		}
		writeJSON(w, http.StatusOK, Envelope(resp))
		return
	}

	resp, err := h.interviewer.Process(ctx, sessionID, req.Message)
	if err != nil {
		if interview.IsNotFound(err) {
			h.logger.Info("chat for unknown session", zap.String("session_id", sessionID))
			writeJSON(w, http.StatusOK, ChatResponse{SessionID: sessionID, Type: TypeWait, KO: "...", VI: ""})
			return
		}
		h.logger.Error("failed to process message", zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, Envelope(resp))
}

// GetSession handles GET /api/sessions/{id}
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := h.interviewer.Session(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, interview.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *ChatHandler) isStartWord(message string) bool {
	_, ok := h.startWords[strings.ToLower(strings.TrimSpace(message))]
	return ok
}

// Envelope flattens an orchestrator response into the wire format. Questions
// and follow-ups carry a "[Qn]" prefix; reports are sent in Korean only.
func Envelope(resp *interview.Response) ChatResponse {
	out := ChatResponse{SessionID: resp.SessionID}

	switch resp.Kind {
	case interview.ResponseQuestion, interview.ResponseFollowup:
		out.Type = TypeQuestion
		out.KO = fmt.Sprintf("[Q%d] %s", resp.QIndex, resp.Text.Get(interview.LangKO))
		out.VI = resp.Text.Get(interview.LangVI)
	case interview.ResponseReport:
		out.Type = TypeReport
		out.KO = resp.Text.Get(interview.LangKO)
	default:
		out.Type = TypeError
		out.KO = resp.Text.Get(interview.LangKO)
		out.VI = resp.Text.Get(interview.LangVI)
	}

	return out
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
