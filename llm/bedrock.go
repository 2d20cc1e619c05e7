package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Bedrock implements Provider for Anthropic models on Amazon Bedrock
type Bedrock struct {
	Region      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64

	svc bedrockInvoker
}

// NewBedrock initializes a Bedrock client using the default AWS config chain
func NewBedrock(region, model string, timeout time.Duration, maxTokens int, temperature float64) (*Bedrock, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("bedrock model is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var loadOpts []func(*awsconfig.LoadOptions) error
	if strings.TrimSpace(region) != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("AWS region not resolved; set llm.region or AWS_REGION")
	}

	return newBedrockWithClient(bedrockruntime.NewFromConfig(cfg), cfg.Region, model, timeout, maxTokens, temperature)
}

func newBedrockWithClient(svc bedrockInvoker, region, model string, timeout time.Duration, maxTokens int, temperature float64) (*Bedrock, error) {
	if family := detectBedrockFamily(model); family != "anthropic" {
		return nil, fmt.Errorf("unsupported Bedrock model family for %q", model)
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Bedrock{
		Region:      region,
		Model:       model,
		Timeout:     timeout,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		svc:         svc,
	}, nil
}

// Name returns provider name
func (b *Bedrock) Name() string { return "bedrock" }

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
}

// Generate invokes the model with the messages API payload
func (b *Bedrock) Generate(ctx context.Context, req Request) (string, error) {
	prompt := req.Prompt
	if req.JSON {
		prompt += "\n\nRespond with a single JSON document and nothing else."
	}
	payload := anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        b.MaxTokens,
		Temperature:      b.Temperature,
		System:           req.System,
		Messages: []anthropicMessage{{
			Role:    "user",
			Content: []anthropicContent{{Type: "text", Text: prompt}},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	out, err := b.svc.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.Model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("%w: bedrock invoke %s: %v", ErrProviderUnavailable, b.Model, err)
	}

	var resp struct {
		Content []anthropicContent `json:"content"`
	}
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode Anthropic response: %w", err)
	}
	for _, c := range resp.Content {
		if c.Type == "text" && strings.TrimSpace(c.Text) != "" {
			return strings.TrimSpace(c.Text), nil
		}
	}
	return "", ErrEmptyResponse
}

func detectBedrockFamily(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.Contains(m, "anthropic."):
		return "anthropic"
	case strings.Contains(m, "meta."):
		return "meta"
	case strings.Contains(m, "amazon.titan"):
		return "titan"
	default:
		return ""
	}
}
