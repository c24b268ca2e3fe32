package reflection

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"github.com/tbourn/go-journal/internal/services"
)

const (
	DefaultModel    = "gemini-2.5-flash"
	DefaultEndpoint = "https://generativelanguage.googleapis.com"
)

// Gemini generates reflections with the Gemini API. The zero APIKey means
// the generator is unavailable.
type Gemini struct {
	APIKey   string
	Model    string
	Endpoint string
	Client   *http.Client
	Log      zerolog.Logger

	once    sync.Once
	genai   *genai.Client
	initErr error
}

// NewGemini returns a generator with defaults applied for empty settings.
func NewGemini(apiKey, model, endpoint string, timeout time.Duration, log zerolog.Logger) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gemini{
		APIKey:   strings.TrimSpace(apiKey),
		Model:    model,
		Endpoint: strings.TrimRight(endpoint, "/"),
		Client:   &http.Client{Timeout: timeout},
		Log:      log,
	}
}

// Available reports whether an API key is configured.
func (g *Gemini) Available() bool { return g != nil && g.APIKey != "" }

// client builds the SDK client on first use.
func (g *Gemini) client(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		g.genai, g.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:      g.APIKey,
			Backend:     genai.BackendGeminiAPI,
			HTTPClient:  g.Client,
			HTTPOptions: genai.HTTPOptions{BaseURL: g.Endpoint + "/"},
		})
	})
	return g.genai, g.initErr
}

// Generate returns the model's reflection for req. An empty answer yields
// FallbackText. Transport and API failures wrap services.ErrGeneration.
func (g *Gemini) Generate(ctx context.Context, req services.ReflectionRequest) (string, error) {
	if !g.Available() {
		return "", services.ErrUnavailable
	}

	tr := otel.Tracer("reflection/Gemini")
	ctx, span := tr.Start(ctx, "Generate")
	defer span.End()
	span.SetAttributes(attribute.String("genai.model", g.Model))

	client, err := g.client(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%w: %v", services.ErrGeneration, err)
	}

	// thinking disabled
	budget := int32(0)
	resp, err := client.Models.GenerateContent(ctx, g.Model, genai.Text(BuildPrompt(req)), &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{ThinkingBudget: &budget},
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		g.Log.Error().Err(err).Str("model", g.Model).Msg("genai request failed")
		return "", fmt.Errorf("%w: %v", services.ErrGeneration, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return FallbackText, nil
	}
	return text, nil
}
