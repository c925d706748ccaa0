package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const defaultModel = "deepseek-chat"

// Client summarises recovered prompts through an OpenAI-compatible chat
// endpoint.
type Client struct {
	client openai.Client
	model  string
}

func New(apiKey string) Client {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL("https://api.deepseek.com/v1"),
	)
	return Client{client: client, model: defaultModel}
}

// SummarizePrompt asks the model to compress a generation prompt into a
// short caption, which is easier to scan in bulk than the raw tag soup.
func (c Client) SummarizePrompt(ctx context.Context, prompt string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("Summarize the following image generation prompt in one short sentence."),
			openai.UserMessage(prompt),
		},
		Model: c.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
