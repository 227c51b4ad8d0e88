package llm

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-scan/internal/model"
)

const defaultMaxTokens = 8192

// AnthropicGenerator produces briefs via the Anthropic messages API.
type AnthropicGenerator struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewAnthropicGenerator builds a generator backed by the official SDK.
// A non-positive maxTokens falls back to the default budget.
func NewAnthropicGenerator(apiKey, modelID string, maxTokens int64) *AnthropicGenerator {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &AnthropicGenerator{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     modelID,
		maxTokens: maxTokens,
	}
}

func (g *AnthropicGenerator) GenerateBrief(ctx context.Context, req Request) (*model.DifferentiationBrief, error) {
	system, user, err := BuildPrompt(req)
	if err != nil {
		return nil, eris.Wrap(err, "llm: build prompt")
	}

	msg, err := g.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(g.model),
		MaxTokens: g.maxTokens,
		System:    []sdk.TextBlockParam{{Text: system}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(user)),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: create message")
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, eris.New("llm: response contains no text block")
	}

	zap.L().Debug("brief generated",
		zap.String("scan_id", req.ScanID),
		zap.String("model", string(msg.Model)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)

	return ParseBrief([]byte(text))
}
