package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/invizible/bookassist/internal/chat"
)

type ChatResponder interface {
	Respond(ctx context.Context, messages []openai.ChatCompletionMessage) (chat.Reply, error)
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
	Prompt   string        `json:"prompt"`
	Message  string        `json:"message"`
	Text     string        `json:"text"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	OK          bool              `json:"ok"`
	Text        string            `json:"text"`
	Reply       chatMessage       `json:"reply"`
	ToolResults []json.RawMessage `json:"toolResults,omitempty"`
}

// HandleChat proxies a conversation through the tool-calling orchestrator.
// Accepts either a messages array or a single prompt field.
func HandleChat(svc ChatResponder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}
		if svc == nil {
			writeError(w, http.StatusInternalServerError, "Chat is not configured")
			return
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
		for _, m := range req.Messages {
			if m.Content == "" {
				continue
			}
			role := m.Role
			if role == "" {
				role = openai.ChatMessageRoleUser
			}
			messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
		}
		if len(messages) == 0 {
			prompt := firstNonEmpty(req.Prompt, req.Message, req.Text, r.URL.Query().Get("q"))
			if prompt != "" {
				messages = append(messages, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				})
			}
		}
		if len(messages) == 0 {
			writeError(w, http.StatusBadRequest, "Missing 'messages' array or a prompt")
			return
		}

		reply, err := svc.Respond(r.Context(), messages)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, chatResponse{
			OK:          true,
			Text:        reply.Text,
			Reply:       chatMessage{Role: "assistant", Content: reply.Text},
			ToolResults: reply.ToolResults,
		})
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
