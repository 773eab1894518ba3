package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"taskforge/internal/config"
)

// Anthropic generates completions through the Anthropic Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropic creates a provider from the given configuration. With
// UseBedrock set, credentials come from the AWS default chain;
// otherwise the API key is required.
func NewAnthropic(cfg *config.Config) (*Anthropic, error) {
	var opts []option.RequestOption

	if cfg.Anthropic.UseBedrock {
		ctx := context.Background()

		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Anthropic.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Anthropic.AWSRegion))
		}
		if cfg.Anthropic.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Anthropic.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("anthropic api key is not set")
		}
		opts = append(opts, option.WithAPIKey(cfg.Anthropic.APIKey))
	}

	model := anthropic.Model(cfg.Anthropic.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.Anthropic.UseBedrock {
		model = translateModelForBedrock(model)
	}

	maxTokens := int64(cfg.Generator.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Name implements Provider.
func (a *Anthropic) Name() string { return "anthropic" }

// Generate implements Provider.
func (a *Anthropic) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := a.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(variant.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("anthropic response contained no text blocks")
	}
	return text, nil
}

// translateModelForBedrock converts standard Anthropic model names to
// Bedrock cross-region inference profile format.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}
