package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pursuit/internal/interfaces"
	"google.golang.org/genai"
)

// GeminiService generates content via the Google Gemini API.
type GeminiService struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  arbor.ILogger
}

// NewGeminiService creates a Gemini-backed LLM service
func NewGeminiService(apiKey, model string, timeout time.Duration, logger arbor.ILogger) (*GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Google API key is required (set llm.google_api_key or PURSUIT_LLM_GOOGLE_API_KEY)")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiService{client: client, model: model, timeout: timeout, logger: logger}, nil
}

// convertMessagesToGemini splits system messages out for SystemInstruction
// and maps the rest to Gemini content, preserving order.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	hasUser := false

	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		role := genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		} else {
			hasUser = true
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	if !hasUser {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}
	return contents, systemText, nil
}

// GenerateContent implements interfaces.LLMService.
func (s *GeminiService) GenerateContent(ctx context.Context, messages []interfaces.Message) (string, error) {
	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var resp *genai.GenerateContentResponse
	var apiErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, apiErr = s.client.Models.GenerateContent(ctx, s.model, contents, config)
		if apiErr == nil {
			break
		}
		if attempt == maxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 2 * time.Second
		s.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Gemini API call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	if apiErr != nil {
		return "", fmt.Errorf("Gemini API call failed after %d retries: %w", maxRetries, apiErr)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty text in Gemini response")
	}
	return text, nil
}

// ModelName implements interfaces.LLMService.
func (s *GeminiService) ModelName() string {
	return s.model
}

// Close implements interfaces.LLMService.
func (s *GeminiService) Close() error {
	s.client = nil
	return nil
}
