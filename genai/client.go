package genai

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Message is one prior turn of a conversation. Histories are plain values so
// callers can persist them alongside their own state.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

const defaultModel = "gpt-4o-mini"

// Client is a thin chat-completions wrapper configured from env.
type Client struct {
	api   *openai.Client
	Model string
}

// NewClient reads OPENAI_API_KEY / GAME_MODEL / OPENAI_BASE_URL.
func NewClient() *Client {
	key := os.Getenv("OPENAI_API_KEY")
	cfg := openai.DefaultConfig(key)
	if base := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); base != "" {
		cfg.BaseURL = base
	}
	model := strings.TrimSpace(os.Getenv("GAME_MODEL"))
	if model == "" {
		model = defaultModel
	}
	return &Client{api: openai.NewClientWithConfig(cfg), Model: model}
}

func maxTokens() int {
	if s := strings.TrimSpace(os.Getenv("GAME_MAX_TOKENS")); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return 1000
}

// Send runs a single completion carrying the full prior history. The client
// holds no conversation state; the caller owns and replays the history.
func (c *Client) Send(ctx context.Context, system string, history []Message, user string) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.Model,
		Messages:    msgs,
		Temperature: 0.9,
		TopP:        0.95,
		MaxTokens:   maxTokens(),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

const quizExtractionPrompt = `You receive raw text extracted from a medical PDF. Build multiple-choice questions from it and respond ONLY with a JSON array in this exact shape, no other text:
[{"question":"...","options":["...","...","...","..."],"correctAnswerIndex":0,"explanation":"..."}]
Questions must be answerable from the text alone. Skip fragments that carry no testable content.`

// ExtractQuizItems asks the model to structure free text into quiz items and
// returns the raw JSON payload for the caller to parse.
func (c *Client) ExtractQuizItems(ctx context.Context, text string, count int) (string, error) {
	if count <= 0 {
		count = 10
	}
	user := "Generate up to " + strconv.Itoa(count) + " questions from this text:\n\n" + text
	return c.Send(ctx, quizExtractionPrompt, nil, user)
}
