package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"github.com/eringen/scribeline/usage"
)

const (
	// MaxDocumentChars bounds the document context sent with every chat turn.
	MaxDocumentChars = 12000
	// MaxHistoryTurns is how many prior turns are replayed to the model.
	MaxHistoryTurns = 6
	// MaxQuestions caps the suggested questions returned in questions mode.
	MaxQuestions = 3

	modeQuestions = "questions"
)

// ChatTurn is one prior message in the conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/ai/chat.
type ChatRequest struct {
	DocumentText string     `json:"documentText"`
	Message      string     `json:"message"`
	History      []ChatTurn `json:"history"`
	Mode         string     `json:"mode"`
}

// ExplainRequest is the body of POST /api/ai/explain.
type ExplainRequest struct {
	Text    string `json:"text"`
	Context string `json:"context"`
}

const chatSystemPrompt = `You are a helpful writing assistant. Answer questions about the document below.
Be concise and quote the document when it helps. If the answer is not in the document, say so.

Document:
"""
%s
"""`

const questionsPrompt = `Read the document below and suggest %d short questions a reader might ask about it.
Reply with a JSON array of strings only.

Document:
"""
%s
"""`

const explainSystemPrompt = `You explain passages of text in plain language. Keep explanations short and concrete.`

// Chat answers a question about a document as a plain-text token stream, or
// returns suggested questions as JSON when mode is "questions". Questions
// mode is refused once the chat quota is spent but never uses it up.
func (h *Handler) Chat(c echo.Context) error {
	const route = "chat"
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		if tooLarge(err) {
			return h.jsonError(c, route, http.StatusRequestEntityTooLarge, "Document is too long")
		}
		return h.jsonError(c, route, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.DocumentText) == "" {
		return h.jsonError(c, route, http.StatusBadRequest, "documentText is required")
	}
	if !h.hasKey {
		c.Logger().Errorf("chat: OPENAI_API_KEY is not configured")
		return h.jsonError(c, route, http.StatusInternalServerError, "Chat is not available right now")
	}

	doc := TruncateDocument(req.DocumentText, MaxDocumentChars)
	if req.Mode == modeQuestions {
		if ok, err := h.reserve(c, route, usage.FeatureChat); !ok {
			return err
		}
		defer h.release(c, usage.FeatureChat)
		return h.questions(c, doc)
	}

	if strings.TrimSpace(req.Message) == "" {
		return h.jsonError(c, route, http.StatusBadRequest, "message is required")
	}
	if ok, err := h.reserve(c, route, usage.FeatureChat); !ok {
		return err
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(fmt.Sprintf(chatSystemPrompt, doc)),
	}
	for _, turn := range RecentHistory(req.History, MaxHistoryTurns) {
		switch turn.Role {
		case "user":
			messages = append(messages, openai.UserMessage(turn.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(req.Message))

	return h.stream(c, route, usage.FeatureChat, messages)
}

// Explain streams a plain-language explanation of the selected text.
func (h *Handler) Explain(c echo.Context) error {
	const route = "explain"
	var req ExplainRequest
	if err := c.Bind(&req); err != nil {
		if tooLarge(err) {
			return h.jsonError(c, route, http.StatusRequestEntityTooLarge, "Text is too long")
		}
		return h.jsonError(c, route, http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return h.jsonError(c, route, http.StatusBadRequest, "text is required")
	}
	if !h.hasKey {
		c.Logger().Errorf("explain: OPENAI_API_KEY is not configured")
		return h.jsonError(c, route, http.StatusInternalServerError, "Explain is not available right now")
	}
	if ok, err := h.reserve(c, route, usage.FeatureChat); !ok {
		return err
	}

	prompt := "Explain this passage:\n\n" + TruncateDocument(req.Text, MaxDocumentChars)
	if ctx := strings.TrimSpace(req.Context); ctx != "" {
		prompt += "\n\nSurrounding context:\n" + TruncateDocument(ctx, MaxDocumentChars/2)
	}
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(explainSystemPrompt),
		openai.UserMessage(prompt),
	}
	return h.stream(c, route, usage.FeatureChat, messages)
}

// stream forwards completion tokens to the client as they arrive. Upstream
// failures before the first token become a 500 JSON error and release the
// reserved use; after that the stream is simply cut short.
func (h *Handler) stream(c echo.Context, route, feature string, messages []openai.ChatCompletionMessageParamUnion) error {
	ctx := c.Request().Context()
	s := h.chat.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(h.model),
		Messages:    messages,
		Temperature: openai.Float(0.7),
	})
	defer s.Close()

	res := c.Response()
	started := false
	defer func() {
		if !started {
			h.release(c, feature)
		}
	}()
	begin := func() {
		res.Header().Set(echo.HeaderContentType, "text/plain; charset=utf-8")
		res.Header().Set("Cache-Control", "no-cache")
		res.Header().Set("X-Accel-Buffering", "no")
		res.WriteHeader(http.StatusOK)
		started = true
	}

	for s.Next() {
		chunk := s.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if !started {
			begin()
		}
		if _, err := res.Write([]byte(delta)); err != nil {
			c.Logger().Errorf("%s: write stream: %v", route, err)
			return nil
		}
		res.Flush()
	}

	if err := s.Err(); err != nil {
		if !started {
			c.Logger().Errorf("%s: upstream: %v", route, err)
			return h.jsonError(c, route, http.StatusInternalServerError, "Failed to generate a response")
		}
		c.Logger().Errorf("%s: stream interrupted: %v", route, err)
		return nil
	}
	if !started {
		begin()
	}
	h.metrics.observe(route, http.StatusOK)
	return nil
}

func (h *Handler) questions(c echo.Context, doc string) error {
	const route = "chat_questions"
	resp, err := h.chat.Chat.Completions.New(c.Request().Context(), openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(h.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(fmt.Sprintf(questionsPrompt, MaxQuestions, doc))},
		Temperature: openai.Float(0.5),
		MaxTokens:   openai.Int(300),
	})
	if err != nil {
		c.Logger().Errorf("chat questions: %v", err)
		return h.jsonError(c, route, http.StatusInternalServerError, "Failed to generate questions")
	}
	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	h.metrics.observe(route, http.StatusOK)
	return c.JSON(http.StatusOK, map[string][]string{"questions": ParseQuestions(content, MaxQuestions)})
}

// TruncateDocument returns at most max characters of s without splitting a
// UTF-8 sequence.
func TruncateDocument(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// RecentHistory returns the last n turns that have content.
func RecentHistory(history []ChatTurn, n int) []ChatTurn {
	kept := make([]ChatTurn, 0, len(history))
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		kept = append(kept, t)
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return kept
}

var (
	reFence      = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	reListMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)
)

// ParseQuestions reads the model's reply as a JSON array of strings, falling
// back to one question per bulleted or numbered line.
func ParseQuestions(content string, max int) []string {
	content = strings.TrimSpace(content)
	if m := reFence.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	var out []string
	var parsed []string
	if err := json.Unmarshal([]byte(content), &parsed); err == nil {
		for _, q := range parsed {
			if q = strings.TrimSpace(q); q != "" {
				out = append(out, q)
			}
		}
	} else {
		for _, line := range strings.Split(content, "\n") {
			q := strings.TrimSpace(reListMarker.ReplaceAllString(line, ""))
			q = strings.Trim(q, `"`)
			if q != "" {
				out = append(out, q)
			}
		}
	}
	if len(out) > max {
		out = out[:max]
	}
	if out == nil {
		out = []string{}
	}
	return out
}
