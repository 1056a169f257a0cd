package namesplit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const splitPrompt = `Split the following person name into first and last name.
Respond with JSON only: {"first_name": "...", "last_name": "..."}.
Name: %s`

// OpenAISplitter asks a chat completion model to split culturally ambiguous
// full names. Token usage is reported back to the caller per request.
type OpenAISplitter struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAISplitter builds a splitter backed by the OpenAI API.
func NewOpenAISplitter(apiKey, model string, timeout time.Duration, logger *zap.Logger) *OpenAISplitter {
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAISplitter{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Split requests a model-assisted split. Any transport or decode failure is
// returned to the caller, which degrades to the heuristic split.
func (s *OpenAISplitter) Split(ctx context.Context, fullName string) (SplitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(splitPrompt, fullName)},
		},
		Temperature: 0,
	})
	if err != nil {
		return SplitResult{}, fmt.Errorf("name split completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return SplitResult{}, fmt.Errorf("name split completion: empty response")
	}

	var parsed struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "` \n")
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return SplitResult{}, fmt.Errorf("decode name split response: %w", err)
	}
	if parsed.FirstName == "" && parsed.LastName == "" {
		return SplitResult{}, fmt.Errorf("name split response missing names")
	}

	return SplitResult{
		FirstName:  strings.TrimSpace(parsed.FirstName),
		LastName:   strings.TrimSpace(parsed.LastName),
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
