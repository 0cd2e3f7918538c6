package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/devpulse/devpulse/pkg/logger"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/devpulse/devpulse/internal/config"
	"github.com/devpulse/devpulse/internal/models"
	"github.com/ollama/ollama/api"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
	"gorm.io/gorm"
)

type AIService struct {
	db     *gorm.DB
	config *config.OpenAIConfig
}

func NewAIService(db *gorm.DB, cfg *config.OpenAIConfig) *AIService {
	return &AIService{
		db:     db,
		config: cfg,
	}
}

// ContextCommit is one commit inside the daily analysis context.
type ContextCommit struct {
	Hash           string   `json:"hash"`
	Message        string   `json:"message"`
	Repository     string   `json:"repository"`
	FilesChanged   []string `json:"files_changed,omitempty"`
	Additions      int      `json:"additions"`
	Deletions      int      `json:"deletions"`
	EstimatedHours float64  `json:"estimated_hours"`
	Timestamp      string   `json:"timestamp"`
}

// DailyWorkContext is the JSON payload sent to the unified daily analysis call.
type DailyWorkContext struct {
	AnalysisDate             string          `json:"analysis_date"`
	UserName                 string          `json:"user_name"`
	Commits                  []ContextCommit `json:"commits"`
	TotalCommits             int             `json:"total_commits"`
	Repositories             []string        `json:"repositories"`
	TotalLinesChanged        int             `json:"total_lines_changed"`
	DailyReport              string          `json:"daily_report,omitempty"`
	DeduplicationInstruction string          `json:"deduplication_instruction,omitempty"`
}

// DailyWorkResult is the validated output of the unified daily analysis call.
// Every optional field has a zero default; callers clamp ranges after decode.
type DailyWorkResult struct {
	TotalEstimatedHours     float64                   `json:"total_estimated_hours"`
	AverageComplexityScore  float64                   `json:"average_complexity_score"`
	AverageSeniorityScore   float64                   `json:"average_seniority_score"`
	WorkSummary             string                    `json:"work_summary"`
	KeyAchievements         []string                  `json:"key_achievements"`
	WorkCategories          map[string]float64        `json:"work_categories"`
	DeduplicatedItems       []models.DeduplicatedItem `json:"deduplicated_items"`
	HourEstimationReasoning string                    `json:"hour_estimation_reasoning"`
	ConsistencyWithReport   string                    `json:"consistency_with_report"`
	Recommendations         []string                  `json:"recommendations"`
	ConfidenceScore         float64                   `json:"confidence_score"`
}

// SimilarityResult is the output of the semantic similarity call.
// IsDuplicate is a pointer so an omitted flag can be defaulted from the score.
type SimilarityResult struct {
	SimilarityScore float64 `json:"similarity_score"`
	IsDuplicate     *bool   `json:"is_duplicate"`
	Reasoning       string  `json:"reasoning"`
}

// AnalyzeDailyWork runs the unified "analyze daily work" call and decodes the
// JSON result. A provider failure (after fallback exhaustion) is returned to
// the caller; no partial result is produced.
func (s *AIService) AnalyzeDailyWork(ctx context.Context, workCtx *DailyWorkContext) (*DailyWorkResult, error) {
	contextJSON, err := json.Marshal(workCtx)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis context: %w", err)
	}

	prompt := fmt.Sprintf(`You are an engineering productivity analyst. Analyze one developer's work for a single day and estimate the total hours spent.

Input data (JSON):
%s

Rules:
- Estimate hours from commit scope and complexity, not from commit count alone.
- If a daily report is present, reconcile it against the commits; work described in both must be counted once.
- total_estimated_hours must be between 0 and 24.
- average_complexity_score and average_seniority_score are on a 1-10 scale.

Respond with ONLY a JSON object of this shape:
{
  "total_estimated_hours": 0.0,
  "average_complexity_score": 0.0,
  "average_seniority_score": 0.0,
  "work_summary": "",
  "key_achievements": [],
  "work_categories": {"feature": 0.0, "bugfix": 0.0, "refactor": 0.0, "docs": 0.0, "other": 0.0},
  "deduplicated_items": [{"commit_description": "", "report_description": "", "confidence": 0.0, "explanation": "", "hours_counted": 0.0}],
  "hour_estimation_reasoning": "",
  "consistency_with_report": "",
  "recommendations": [],
  "confidence_score": 0.0
}`, string(contextJSON))

	content, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var result DailyWorkResult
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &result); err != nil {
		return nil, fmt.Errorf("decode daily analysis response: %w", err)
	}
	if result.WorkCategories == nil {
		result.WorkCategories = map[string]float64{}
	}
	return &result, nil
}

// ScoreSimilarity asks the provider whether two work descriptions refer to the
// same activity.
func (s *AIService) ScoreSimilarity(ctx context.Context, commitDesc, reportDesc string) (*SimilarityResult, error) {
	prompt := fmt.Sprintf(`Compare two descriptions of developer work and judge whether they describe the SAME underlying task.

Description A (from a commit):
%s

Description B (from an end-of-day report):
%s

Respond with ONLY a JSON object:
{"similarity_score": 0.0, "is_duplicate": false, "reasoning": ""}

similarity_score is between 0 and 1. is_duplicate should be true when both describe the same task even if worded differently.`, commitDesc, reportDesc)

	content, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var result SimilarityResult
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &result); err != nil {
		return nil, fmt.Errorf("decode similarity response: %w", err)
	}
	if result.SimilarityScore < 0 {
		result.SimilarityScore = 0
	}
	if result.SimilarityScore > 1 {
		result.SimilarityScore = 1
	}
	return &result, nil
}

// AnalyzeReport produces the lightweight AI view of an EOD report used while
// the report is submitted, before the unified daily analysis runs.
func (s *AIService) AnalyzeReport(ctx context.Context, rawText string) (*models.ReportAIAnalysis, error) {
	prompt := fmt.Sprintf(`Summarize this developer end-of-day report.

Report:
%s

Respond with ONLY a JSON object:
{"summary": "", "estimated_hours": 0.0, "key_achievements": [], "blockers": [], "sentiment": "neutral"}`, rawText)

	content, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var result models.ReportAIAnalysis
	if err := json.Unmarshal([]byte(extractJSONObject(content)), &result); err != nil {
		return nil, fmt.Errorf("decode report analysis response: %w", err)
	}
	return &result, nil
}

// complete runs a prompt through the ordered LLM configs until one succeeds.
func (s *AIService) complete(ctx context.Context, prompt string) (string, error) {
	llmConfigs := s.getOrderedLLMConfigs()
	if len(llmConfigs) == 0 {
		return "", fmt.Errorf("no LLM configuration available")
	}

	var lastErr error
	for i, llmConfig := range llmConfigs {
		logger.Infof("[AI] Attempting LLM %d/%d: %s (model: %s)", i+1, len(llmConfigs), llmConfig.Name, llmConfig.Model)

		content, err := s.callLLM(ctx, &llmConfig, prompt)
		if err == nil {
			return content, nil
		}

		lastErr = err
		logger.Warnf("[AI] LLM %s failed: %v, trying next...", llmConfig.Name, err)

		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("all LLMs failed, last error: %w", lastErr)
}

func (s *AIService) getOrderedLLMConfigs() []models.LLMConfig {
	var configs []models.LLMConfig

	var defaultConfig models.LLMConfig
	if err := s.db.Where("is_default = ? AND is_active = ?", true, true).First(&defaultConfig).Error; err == nil {
		configs = append(configs, defaultConfig)
	}

	var backupConfigs []models.LLMConfig
	existingIDs := make(map[uint]bool)
	for _, c := range configs {
		existingIDs[c.ID] = true
	}
	s.db.Where("is_active = ?", true).Order("id ASC").Find(&backupConfigs)
	for _, c := range backupConfigs {
		if !existingIDs[c.ID] {
			configs = append(configs, c)
		}
	}

	if len(configs) == 0 && s.config.APIKey != "" {
		configs = append(configs, models.LLMConfig{
			Name:    "fallback",
			BaseURL: s.config.BaseURL,
			APIKey:  s.config.APIKey,
			Model:   s.config.Model,
		})
	}

	return configs
}

// callLLM dispatches to the appropriate provider-specific function based on Provider field
func (s *AIService) callLLM(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	switch llmConfig.Provider {
	case "anthropic":
		return s.callAnthropic(ctx, llmConfig, prompt)
	case "ollama":
		return s.callOllama(ctx, llmConfig, prompt)
	case "gemini":
		return s.callGemini(ctx, llmConfig, prompt)
	case "azure":
		return s.callAzure(ctx, llmConfig, prompt)
	default:
		// openai and other OpenAI-compatible services
		return s.callOpenAI(ctx, llmConfig, prompt)
	}
}

// callOpenAI handles OpenAI and OpenAI-compatible APIs (including custom endpoints)
func (s *AIService) callOpenAI(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	clientConfig := openai.DefaultConfig(llmConfig.APIKey)
	if llmConfig.BaseURL != "" {
		clientConfig.BaseURL = llmConfig.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	temperature := float32(0.3)
	if llmConfig.Temperature > 0 {
		temperature = float32(llmConfig.Temperature)
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: llmConfig.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: temperature,
	})

	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

// callAnthropic handles Anthropic Claude API using the native SDK
func (s *AIService) callAnthropic(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(llmConfig.APIKey),
	)

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
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	// Extract text content from response
	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return content, nil
}

// callOllama handles Ollama API using the native SDK
func (s *AIService) callOllama(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	baseURL := llmConfig.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := llmConfig.Model
	if model == "" {
		model = "llama3"
	}

	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Options: map[string]interface{}{
			"temperature": llmConfig.Temperature,
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})

	if err != nil {
		return "", fmt.Errorf("Ollama API error: %w", err)
	}

	return content.String(), nil
}

// callGemini handles Google Gemini API using the native SDK
func (s *AIService) callGemini(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: llmConfig.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("Gemini client error: %w", err)
	}

	model := llmConfig.Model
	if model == "" {
		model = "gemini-3.0-flash"
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	return resp.Text(), nil
}

// callAzure handles Azure OpenAI API using special configuration
func (s *AIService) callAzure(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	// Azure requires BaseURL format: https://{resource-name}.openai.azure.com
	// Model field is used as deployment name
	cfg := openai.DefaultAzureConfig(llmConfig.APIKey, llmConfig.BaseURL)
	client := openai.NewClientWithConfig(cfg)

	temperature := float32(0.3)
	if llmConfig.Temperature > 0 {
		temperature = float32(llmConfig.Temperature)
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: llmConfig.Model, // In Azure, this is the deployment name
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})

	if err != nil {
		return "", fmt.Errorf("Azure OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from Azure OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

// extractJSONObject returns the first balanced JSON object in content.
// Providers often wrap JSON in markdown fences or prose.
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return content
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return content[start : i+1]
				}
			}
		}
	}
	return content[start:]
}
