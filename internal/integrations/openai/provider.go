package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"property-desk/internal/integrations"
	"property-desk/internal/integrations/dto"
)

const (
	classifyPrompt = `Analyze this property maintenance issue and respond with a JSON object with the fields ` +
		`"title", "priority" (one of LOW, MEDIUM, HIGH, URGENT), "category", "estimatedTimeToFix" and "suggestedAction". Issue: %s`
	generatePrompt = `Generate one realistic property maintenance issue reported by a tenant. Respond with a JSON object ` +
		`with the fields "title", "description", "priority" (one of LOW, MEDIUM, HIGH, URGENT) and "suggestedAction".`
	resolvePrompt = `You are a property maintenance assistant. Propose a resolution for this issue and respond with a JSON ` +
		`object with the fields "resolution", "actionTaken" and "notes". Issue: %s`
	systemPrompt = "You are an assistant for a property management company. Always answer with a single JSON object."
)

// ErrNoJSON - в ответе модели не нашлось JSON-объекта.
var ErrNoJSON = errors.New("в ответе модели нет JSON-объекта")

// Provider ходит в OpenAI-совместимый /chat/completions.
type Provider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *zap.Logger
}

func New(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) integrations.TextGenerator {
	return &Provider{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		logger:     logger.Named("openai_provider"),
	}
}

func (p *Provider) Name() string {
	return "openai"
}

func (p *Provider) Classify(ctx context.Context, description string) (*dto.IssueClassification, error) {
	var out dto.IssueClassification
	if err := p.completeJSON(ctx, fmt.Sprintf(classifyPrompt, description), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Provider) GenerateIssue(ctx context.Context) (*dto.GeneratedIssue, error) {
	var out dto.GeneratedIssue
	if err := p.completeJSON(ctx, generatePrompt, &out); err != nil {
		return nil, err
	}
	if out.Title == "" || out.Description == "" {
		return nil, fmt.Errorf("модель вернула пустую заявку")
	}
	return &out, nil
}

func (p *Provider) ResolveIssue(ctx context.Context, description string) (*dto.IssueResolution, error) {
	var out dto.IssueResolution
	if err := p.completeJSON(ctx, fmt.Sprintf(resolvePrompt, description), &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Resolution) == "" {
		return nil, fmt.Errorf("модель вернула пустое решение")
	}
	return &out, nil
}

// completeJSON отправляет промпт и разбирает JSON-объект из свободного текста ответа.
func (p *Provider) completeJSON(ctx context.Context, prompt string, target interface{}) error {
	content, err := p.complete(ctx, prompt)
	if err != nil {
		return err
	}

	raw, err := extractJSONObject(content)
	if err != nil {
		p.logger.Warn("Не удалось найти JSON в ответе модели", zap.String("content", content))
		return err
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("ошибка парсинга JSON из ответа модели: %w", err)
	}
	return nil
}

func (p *Provider) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("не удалось создать запрос: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ошибка запроса к OpenAI: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("не удалось прочитать ответ OpenAI: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("OpenAI вернул статус %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("ошибка парсинга ответа OpenAI: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("OpenAI вернул пустой список choices")
	}

	p.logger.Debug("Получен ответ модели", zap.String("model", p.model), zap.Int("bytes", len(respBody)))
	return parsed.Choices[0].Message.Content, nil
}

// extractJSONObject вырезает текст от первой '{' до последней '}'.
func extractJSONObject(content string) (string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return content[start : end+1], nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
