package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hirewatch/screening-engine/internal/core/domain"
	"github.com/hirewatch/screening-engine/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// NewWithExecutor layers retry and circuit breaking over every call.
func NewWithExecutor(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	client := New(baseURL, genModel, embedModel)
	client.executor = executor
	return client
}

// Embedder is the embedding gateway. It enforces the fixed vector dimension
// the deployment was provisioned with; a wrong-size vector is a contract
// violation by the collaborator, not a retryable glitch.
type Embedder struct {
	client    *Client
	dimension int
}

func NewEmbedder(client *Client, dimension int) *Embedder {
	return &Embedder{client: client, dimension: dimension}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed", err)
	}

	for i, vector := range response.Embeddings {
		if e.dimension > 0 && len(vector) != e.dimension {
			return nil, domain.WrapError(
				domain.ErrEmbedding,
				"embed",
				fmt.Errorf("vector %d has dimension %d, want %d", i, len(vector), e.dimension),
			)
		}
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed", fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}

// Explainer turns a verdict and its structured evidence into a free-text
// rationale. Callers treat it as fire-and-forget.
type Explainer struct {
	client *Client
}

func NewExplainer(client *Client) *Explainer {
	return &Explainer{client: client}
}

func (g *Explainer) ExplainVerdict(ctx context.Context, verdict domain.SuspicionVerdict) (string, error) {
	return g.client.generateText(ctx, buildExplanationPrompt(verdict))
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
