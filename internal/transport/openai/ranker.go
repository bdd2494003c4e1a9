// Package openai provides the semantic ranking signal via an
// OpenAI-compatible embedding API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/hirestack/candidex/internal/domain"
)

// Ranker scores candidates against a query by embedding both and comparing
// with cosine similarity. All calls go through a circuit breaker; when the
// provider misbehaves the breaker opens and callers degrade to keyword-only
// ranking without waiting on timeouts.
type Ranker struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// Config holds the ranking provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewRanker creates an OpenAI-compatible semantic ranker.
func NewRanker(cfg *Config) *Ranker {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	log := cfg.Logger
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "ranking-embeddings",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Ranker{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   openai.EmbeddingModel(cfg.Model),
		breaker: breaker,
		logger:  log,
	}
}

// Rank embeds the query and each candidate in one batch request and returns
// positional cosine similarities normalized to [0, 1].
func (r *Ranker) Rank(ctx context.Context, query string, results []domain.SearchResult) ([]float64, error) {
	if len(results) == 0 {
		return nil, nil
	}

	inputs := make([]string, 0, len(results)+1)
	inputs = append(inputs, query)
	for _, res := range results {
		inputs = append(inputs, candidateText(res))
	}

	out, err := r.breaker.Execute(func() (any, error) {
		resp, err := r.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:          inputs,
			Model:          r.model,
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		})
		if err != nil {
			return nil, parseAPIError(err)
		}
		if len(resp.Data) != len(inputs) {
			return nil, fmt.Errorf("embedding response has %d vectors, want %d", len(resp.Data), len(inputs))
		}
		return resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("rank candidates: %w", err)
	}

	resp := out.(openai.EmbeddingResponse)
	queryVec := resp.Data[0].Embedding
	scores := make([]float64, len(results))
	for i := range results {
		scores[i] = normalizedCosine(queryVec, resp.Data[i+1].Embedding)
	}
	return scores, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (r *Ranker) HealthCheck(ctx context.Context) error {
	if _, err := r.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// candidateText builds the embedding input for one candidate.
func candidateText(res domain.SearchResult) string {
	parts := make([]string, 0, 3)
	if res.Name != "" {
		parts = append(parts, res.Name)
	}
	if len(res.Skills) > 0 {
		parts = append(parts, strings.Join(res.Skills, " "))
	}
	if res.Company != "" {
		parts = append(parts, res.Company)
	}
	if len(parts) == 0 {
		return res.CandidateID
	}
	return strings.Join(parts, " ")
}

// normalizedCosine maps cosine similarity from [-1, 1] into [0, 1].
func normalizedCosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return (cos + 1) / 2
}

// parseAPIError extracts a human-readable error from the API response.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("embedding API error %d: %s", reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("embedding API error %d: %s", reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("embedding request failed: %w", err)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
