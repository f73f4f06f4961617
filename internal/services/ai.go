package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/internal/metrics"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
	"google.golang.org/genai"
	"gorm.io/gorm"
)

// ErrNoLLM means no provider is configured at all
var ErrNoLLM = errors.New("no LLM configuration available")

// AIService runs prompts against the configured LLM providers
type AIService struct {
	db            *gorm.DB
	config        *config.OpenAIConfig
	configService *SystemConfigService
	usage         *AIUsageService
}

func NewAIService(db *gorm.DB, cfg *config.OpenAIConfig) *AIService {
	return &AIService{
		db:            db,
		config:        cfg,
		configService: NewSystemConfigService(db),
		usage:         NewAIUsageService(db),
	}
}

type CompletionRequest struct {
	Feature   string
	UserID    *uint
	ProjectID *uint
	Prompt    string
}

type Completion struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Config  string `json:"config"`
}

type llmResult struct {
	content          string
	promptTokens     int
	completionTokens int
}

// Complete tries each LLM of the chain in order until one answers
func (s *AIService) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	configs := s.orderedLLMConfigs(req.Feature)
	if len(configs) == 0 {
		return nil, ErrNoLLM
	}
	logger.Debug().Str("feature", req.Feature).Int("prompt_chars", len(req.Prompt)).Msg("[AI] completion requested")

	var lastErr error
	for i := range configs {
		llmConfig := &configs[i]
		started := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, llmConfig.Timeout())
		result, err := s.callLLM(callCtx, llmConfig, req.Prompt)
		cancel()
		elapsed := time.Since(started)
		metrics.RecordLLMCallLatency(llmConfig.Provider, err, elapsed)
		s.markUsed(llmConfig, err)

		entry := &models.AIUsageLog{
			UserID:      req.UserID,
			ProjectID:   req.ProjectID,
			Feature:     req.Feature,
			LLMConfigID: llmConfig.ID,
			Provider:    llmConfig.Provider,
			Model:       llmConfig.Model,
			LatencyMs:   elapsed.Milliseconds(),
			Success:     err == nil,
		}
		if err != nil {
			entry.ErrorMessage = err.Error()
			s.usage.Record(entry)
			lastErr = err
			logger.Warnf("[AI] LLM %s (%d/%d) failed: %v", llmConfig.Name, i+1, len(configs), err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		entry.PromptTokens = result.promptTokens
		entry.CompletionTokens = result.completionTokens
		entry.TotalTokens = result.promptTokens + result.completionTokens
		s.usage.Record(entry)

		logger.Infof("[AI] %s answered with %s in %s", req.Feature, llmConfig.Name, elapsed.Round(time.Millisecond))
		return &Completion{Content: strings.TrimSpace(result.content), Model: llmConfig.Model, Config: llmConfig.Name}, nil
	}
	return nil, fmt.Errorf("all LLMs failed, last error: %w", lastErr)
}

// markUsed keeps last_used_at and last_error of stored configs current for the admin list
func (s *AIService) markUsed(llmConfig *models.LLMConfig, callErr error) {
	if llmConfig.ID == 0 {
		return
	}
	lastError := ""
	if callErr != nil {
		lastError = callErr.Error()
	}
	if err := s.db.Model(&models.LLMConfig{}).Where("id = ?", llmConfig.ID).
		UpdateColumns(map[string]interface{}{"last_used_at": time.Now().UTC(), "last_error": lastError}).Error; err != nil {
		logger.Warn().Err(err).Uint("llm_config_id", llmConfig.ID).Msg("[AI] failed to record LLM use")
	}
}

// orderedLLMConfigs is the fallback chain: the config pinned for feature, the default,
// the other active configs, and finally the file config.
func (s *AIService) orderedLLMConfigs(feature string) []models.LLMConfig {
	var configs []models.LLMConfig
	seen := make(map[uint]bool)
	add := func(c models.LLMConfig) {
		if !seen[c.ID] {
			seen[c.ID] = true
			configs = append(configs, c)
		}
	}

	if feature != "" {
		if id := s.configService.GetInt("ai_"+feature+"_llm_config_id", 0); id > 0 {
			var pinned models.LLMConfig
			if err := s.db.Where("id = ? AND is_active = ?", id, true).First(&pinned).Error; err == nil {
				add(pinned)
			}
		}
	}

	var defaultConfig models.LLMConfig
	if err := s.db.Where("is_default = ? AND is_active = ?", true, true).First(&defaultConfig).Error; err == nil && defaultConfig.Serves(feature) {
		add(defaultConfig)
	}

	var active []models.LLMConfig
	s.db.Where("is_active = ?", true).Order("id ASC").Find(&active)
	for _, c := range active {
		if c.Serves(feature) {
			add(c)
		}
	}

	if len(configs) == 0 && s.config != nil && s.config.APIKey != "" {
		configs = append(configs, models.LLMConfig{
			Name:     "fallback",
			Provider: "openai",
			BaseURL:  s.config.BaseURL,
			APIKey:   s.config.APIKey,
			Model:    s.config.Model,
		})
	}
	return configs
}

func (s *AIService) callLLM(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (*llmResult, error) {
	switch llmConfig.Provider {
	case "anthropic":
		return s.callAnthropic(ctx, llmConfig, prompt)
	case "ollama":
		return s.callOllama(ctx, llmConfig, prompt)
	case "gemini":
		return s.callGemini(ctx, llmConfig, prompt)
	case "azure":
		// BaseURL is https://{resource}.openai.azure.com and Model is the deployment name
		return s.callOpenAICompatible(ctx, openai.DefaultAzureConfig(llmConfig.APIKey, llmConfig.BaseURL), llmConfig, prompt)
	default:
		cfg := openai.DefaultConfig(llmConfig.APIKey)
		if llmConfig.BaseURL != "" {
			cfg.BaseURL = llmConfig.BaseURL
		}
		return s.callOpenAICompatible(ctx, cfg, llmConfig, prompt)
	}
}

func temperatureOf(c *models.LLMConfig) float32 {
	if c.Temperature > 0 {
		return float32(c.Temperature)
	}
	return 0.3
}

func (s *AIService) callOpenAICompatible(ctx context.Context, clientConfig openai.ClientConfig, llmConfig *models.LLMConfig, prompt string) (*llmResult, error) {
	client := openai.NewClientWithConfig(clientConfig)
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: llmConfig.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   llmConfig.MaxTokens,
		Temperature: temperatureOf(llmConfig),
	})
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", llmConfig.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", llmConfig.Provider)
	}
	return &llmResult{
		content:          resp.Choices[0].Message.Content,
		promptTokens:     resp.Usage.PromptTokens,
		completionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (s *AIService) callAnthropic(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (*llmResult, error) {
	opts := []option.RequestOption{option.WithAPIKey(llmConfig.APIKey)}
	if llmConfig.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(llmConfig.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	maxTokens := int64(llmConfig.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}
	model := llmConfig.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return &llmResult{
		content:          content.String(),
		promptTokens:     int(resp.Usage.InputTokens),
		completionTokens: int(resp.Usage.OutputTokens),
	}, nil
}

func (s *AIService) callOllama(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (*llmResult, error) {
	baseURL := llmConfig.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := llmConfig.Model
	if model == "" {
		model = "llama3"
	}

	result := &llmResult{}
	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model:    model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Options:  map[string]interface{}{"temperature": temperatureOf(llmConfig)},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			result.promptTokens = resp.PromptEvalCount
			result.completionTokens = resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}
	result.content = content.String()
	return result, nil
}

func (s *AIService) callGemini(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (*llmResult, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: llmConfig.APIKey})
	if err != nil {
		return nil, fmt.Errorf("gemini client error: %w", err)
	}
	model := llmConfig.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}
	result := &llmResult{content: resp.Text()}
	if resp.UsageMetadata != nil {
		result.promptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.completionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}
