package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/productflow/internal/config"
	"github.com/fyrsmithlabs/productflow/internal/logging"
	"github.com/fyrsmithlabs/productflow/internal/metrics"
)

// OpenAIConfig holds settings for the OpenAI-compatible backend.
type OpenAIConfig struct {
	// BaseURL overrides the API endpoint. Empty uses the provider default.
	BaseURL string
	Model   string
	APIKey  config.Secret
	// Timeout bounds a single call. Timeouts follow the same failure path
	// as any other call error.
	Timeout time.Duration
}

// Validate validates the configuration.
func (c OpenAIConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// OpenAI is an Invoker backed by an OpenAI-compatible chat completion API
// via langchaingo. The response format differs per call, and langchaingo
// fixes it at client construction, so a client is built per invocation.
type OpenAI struct {
	config  OpenAIConfig
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewOpenAI creates an OpenAI-backed invoker.
func NewOpenAI(cfg OpenAIConfig, logger *logging.Logger, m *metrics.Metrics) (*OpenAI, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &OpenAI{config: cfg, logger: logger, metrics: m}, nil
}

// Invoke implements Invoker.
func (o *OpenAI) Invoke(ctx context.Context, messages []Message, format *ResponseFormat) (string, error) {
	if len(messages) == 0 {
		return "", ErrNoMessages
	}

	opts := []openai.Option{
		openai.WithModel(o.config.Model),
	}
	if o.config.APIKey.IsSet() {
		opts = append(opts, openai.WithToken(o.config.APIKey.Value()))
	}
	if o.config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(o.config.BaseURL))
	}
	if format != nil {
		opts = append(opts, openai.WithResponseFormat(convertFormat(format)))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return "", fmt.Errorf("creating client: %w", err)
	}

	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(roleFor(m.Role), m.Content))
	}

	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := client.GenerateContent(ctx, content)
	duration := time.Since(start)

	if err != nil {
		if o.metrics != nil {
			o.metrics.RecordLLMRequest("error", duration)
		}
		o.logger.Warn(ctx, "llm call failed",
			zap.String("model", o.config.Model),
			zap.Duration("duration", duration),
			zap.Error(err))
		return "", fmt.Errorf("llm call: %w", err)
	}
	if o.metrics != nil {
		o.metrics.RecordLLMRequest("ok", duration)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Content, nil
}

func roleFor(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// convertFormat maps our schema representation to langchaingo's OpenAI
// json_schema response format with strict semantics.
func convertFormat(format *ResponseFormat) *openai.ResponseFormat {
	return &openai.ResponseFormat{
		Type: "json_schema",
		JSONSchema: &openai.ResponseFormatJSONSchema{
			Name:   format.Name,
			Strict: true,
			Schema: convertSchema(format.Schema),
		},
	}
}

func convertSchema(s *Schema) *openai.ResponseFormatJSONSchemaProperty {
	if s == nil {
		return nil
	}
	out := &openai.ResponseFormatJSONSchemaProperty{
		Type:        s.Type,
		Description: s.Description,
		Required:    s.Required,
		Items:       convertSchema(s.Items),
	}
	if len(s.Enum) > 0 {
		out.Enum = make([]any, len(s.Enum))
		for i, v := range s.Enum {
			out.Enum[i] = v
		}
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*openai.ResponseFormatJSONSchemaProperty, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = convertSchema(prop)
		}
	}
	return out
}
