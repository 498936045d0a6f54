package gemini

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/spigell/applyflow/internal/ai"
	"github.com/spigell/applyflow/internal/logger"
	"github.com/spigell/applyflow/internal/metrics"
	"github.com/spigell/applyflow/internal/utils"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultTimeout        = 45 * time.Second
	defaultMaxRetries     = 2
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 8 * time.Second
	defaultMaxLogLength   = 200
	defaultTemperature    = 0.2
)

var wait = utils.WaitFor

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type modelsFactory func(ctx context.Context, apiKey string) (modelsAPI, error)

// Options tune the generator. Zero values fall back to defaults.
type Options struct {
	DefaultModel   string
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Temperature    float32
	MaxLogLength   int
}

// Generator implements ai.Completer on top of the Gemini API. One genai client
// is kept per tenant API key.
type Generator struct {
	opts      Options
	logger    *zap.Logger
	newModels modelsFactory

	cacheMu sync.RWMutex
	clients map[string]modelsAPI
}

// NewGenerator creates a Generator talking to the Gemini API backend.
func NewGenerator(opts Options, log *zap.Logger) *Generator {
	if strings.TrimSpace(opts.DefaultModel) == "" {
		opts.DefaultModel = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.Temperature <= 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}

	return &Generator{
		opts:      opts,
		logger:    logger.WithAIFields(log, Provider, "", ""),
		newModels: newGenAIModels,
		clients:   make(map[string]modelsAPI),
	}
}

func newGenAIModels(ctx context.Context, apiKey string) (modelsAPI, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client.Models, nil
}

// Complete sends the prompt and attachments with the credential's key and model.
func (g *Generator) Complete(ctx context.Context, req ai.Request) (*ai.Completion, error) {
	if g == nil || g.newModels == nil {
		return nil, errors.New("gemini generator is not initialized")
	}

	apiKey := strings.TrimSpace(req.Credential.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is empty", ai.ErrCredential)
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("prompt must not be empty")
	}

	model := g.Model(req.Credential.Model)
	log := logger.WithAIFields(g.logger, "", model, req.Credential.TenantID)

	models, err := g.modelsFor(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrCredential, err)
	}

	contents := buildContents(prompt, req.Attachments)
	config := g.contentConfig(req.Mode)

	log.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.opts.MaxLogLength)),
		zap.Int("attachments", len(req.Attachments)),
		zap.String("mode", string(req.Mode)),
	)

	for attempt := 0; ; attempt++ {
		started := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
		resp, err := models.GenerateContent(callCtx, model, contents, config)
		cancel()

		if err == nil {
			text := responseText(resp)
			if text == "" {
				err = fmt.Errorf("%w: gemini api returned empty response", ai.ErrMalformedOutput)
				metrics.ObserveAIRequest(Provider, model, ai.Outcome(err), time.Since(started))
				return nil, err
			}

			metrics.ObserveAIRequest(Provider, model, ai.Outcome(nil), time.Since(started))
			log.Debug("gemini generate content response",
				zap.Int("attempt", attempt+1),
				zap.Int("response_length", utf8.RuneCountInString(text)),
				zap.String("response_preview", utils.TruncateForLog(text, g.opts.MaxLogLength)),
			)

			return ai.Coerce(text), nil
		}

		classified := classify(err)
		metrics.ObserveAIRequest(Provider, model, ai.Outcome(classified), time.Since(started))

		if ctx.Err() != nil {
			return nil, fmt.Errorf("generate content: %w", ctx.Err())
		}

		if !errors.Is(classified, ai.ErrTransient) || attempt+1 >= g.opts.MaxRetries {
			return nil, classified
		}

		delay := utils.Backoff(attempt, g.opts.InitialBackoff, g.opts.MaxBackoff)
		log.Warn("retrying gemini request",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", g.opts.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return nil, fmt.Errorf("generate content: %w", err)
		}
	}
}

// Model returns preferred when set, otherwise the configured default.
func (g *Generator) Model(preferred string) string {
	if preferred = strings.TrimSpace(preferred); preferred != "" {
		return preferred
	}
	if g == nil {
		return DefaultModel
	}
	return g.opts.DefaultModel
}

func (g *Generator) modelsFor(ctx context.Context, apiKey string) (modelsAPI, error) {
	sum := sha256.Sum256([]byte(apiKey))
	key := fmt.Sprintf("%x", sum[:])

	g.cacheMu.RLock()
	models, ok := g.clients[key]
	g.cacheMu.RUnlock()
	if ok {
		return models, nil
	}

	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()

	if models, ok := g.clients[key]; ok {
		return models, nil
	}

	models, err := g.newModels(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	g.clients[key] = models

	return models, nil
}

func (g *Generator) contentConfig(mode ai.Mode) *genai.GenerateContentConfig {
	temperature := g.opts.Temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if mode == ai.ModeJSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

func buildContents(prompt string, attachments []ai.Attachment) []*genai.Content {
	parts := []*genai.Part{{Text: prompt}}
	for _, attachment := range attachments {
		if len(attachment.Data) == 0 {
			continue
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				Data:     attachment.Data,
				MIMEType: attachment.MIMEType,
			},
		})
	}

	return []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: parts,
	}}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

// classify maps backend failures onto the ai error taxonomy.
func classify(err error) error {
	if apiErr, ok := asAPIError(err); ok {
		message := strings.ToLower(apiErr.Message + " " + apiErr.Status)
		switch {
		case apiErr.Code == http.StatusUnauthorized, apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %v", ai.ErrCredential, err)
		case apiErr.Code == http.StatusBadRequest && strings.Contains(message, "api key"):
			return fmt.Errorf("%w: %v", ai.ErrCredential, err)
		case apiErr.Code == http.StatusTooManyRequests && isQuotaExhausted(message):
			return fmt.Errorf("%w: %v", ai.ErrCredential, err)
		case apiErr.Code == http.StatusTooManyRequests,
			apiErr.Code == http.StatusRequestTimeout,
			apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", ai.ErrTransient, err)
		default:
			return fmt.Errorf("generate content: %w", err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ai.ErrTransient, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ai.ErrTransient, err)
	}

	return fmt.Errorf("generate content: %w", err)
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

func isQuotaExhausted(message string) bool {
	return strings.Contains(message, "quota") || strings.Contains(message, "billing")
}
