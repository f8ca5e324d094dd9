package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const digestSystemPrompt = `You are a press analyst. Given a run of news headlines about one brand, write a single short digest sentence capturing what the coverage is about.

Rules:
- Neutral tone, no hype words
- Keep concrete facts: names, numbers, places
- Plain text only, no markdown, no quotes around the output
- Respect the length bounds given in the user message`

// OpenAICompleter implements Completer on the OpenAI chat completions API.
type OpenAICompleter struct {
	client    *openai.Client
	model     openai.ChatModel
	modelName string
}

// Ensure OpenAICompleter implements Completer
var _ Completer = (*OpenAICompleter)(nil)

// NewOpenAICompleter creates a Completer using gpt-4o-mini.
func NewOpenAICompleter(apiKey string) *OpenAICompleter {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAICompleter{
		client:    &client,
		model:     openai.ChatModelGPT4oMini,
		modelName: "gpt-4o-mini",
	}
}

func (c *OpenAICompleter) Complete(ctx context.Context, text string, minChars, maxChars int) (string, error) {
	bounds := fmt.Sprintf("at least %d characters", minChars)
	if maxChars > 0 {
		bounds = fmt.Sprintf("between %d and %d characters", minChars, maxChars)
	}
	userPrompt := fmt.Sprintf("Headlines: %s\n\nWrite the digest (%s).", text, bounds)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(digestSystemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", fmt.Errorf("empty summary from %s", c.modelName)
	}

	return summary, nil
}
