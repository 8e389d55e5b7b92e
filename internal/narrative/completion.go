package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/partsignal/replenish-core/internal/config"
)

// CompletionExplainer asks an OpenAI-compatible chat-completions endpoint
// for narrative reasoning. Any transport or parse failure surfaces as an
// error so the caller can fall back to deterministic reasoning.
type CompletionExplainer struct {
	cfg        config.NarrativeConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewCompletionExplainer creates the completion-backed explainer.
func NewCompletionExplainer(cfg config.NarrativeConfig, logger *logrus.Logger) *CompletionExplainer {
	return &CompletionExplainer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// narrativePayload is the structured reply format requested in the prompt.
type narrativePayload struct {
	Recommendation string   `json:"recommendation"`
	Confidence     float64  `json:"confidence"`
	Reasoning      []string `json:"reasoning"`
	RiskAssessment []string `json:"riskAssessment"`
	Alternatives   []string `json:"alternatives"`
	KeyInsights    []string `json:"keyInsights"`
}

const systemPrompt = "You are an inventory planning assistant. Reply with a JSON object " +
	"containing the fields recommendation, confidence, reasoning, riskAssessment, " +
	"alternatives and keyInsights."

// Explain sends the computed metrics to the completion service and parses
// the structured reply. Unparseable output degrades to the raw text as the
// sole reasoning line at the configured confidence.
func (c *CompletionExplainer) Explain(ctx context.Context, ec ExplainContext) (Result, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: c.buildPrompt(ec)},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode completion request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("completion service returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Result{}, fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Result{}, fmt.Errorf("completion response contained no choices")
	}

	return c.parseContent(parsed.Choices[0].Message.Content), nil
}

// parseContent attempts the structured JSON payload first; raw text becomes
// the single reasoning line.
func (c *CompletionExplainer) parseContent(content string) Result {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var payload narrativePayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err == nil && len(payload.Reasoning) > 0 {
		return Result{
			Recommendation: payload.Recommendation,
			Confidence:     payload.Confidence,
			Reasoning:      payload.Reasoning,
			RiskAssessment: payload.RiskAssessment,
			Alternatives:   payload.Alternatives,
			KeyInsights:    payload.KeyInsights,
			Source:         "completion",
		}
	}

	c.logger.Debug("completion reply was not structured JSON, using raw text")
	return Result{
		Reasoning:  []string{content},
		Confidence: c.cfg.RawTextConfidence,
		Source:     "completion-raw",
	}
}

func (c *CompletionExplainer) buildPrompt(ec ExplainContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Part %s replenishment context:\n", ec.PartNumber)
	fmt.Fprintf(&sb, "- current stock: %.0f\n", ec.CurrentStock)
	fmt.Fprintf(&sb, "- reorder point: %.0f (safety stock %.0f)\n", ec.ReorderPoint, ec.SafetyStock)
	fmt.Fprintf(&sb, "- mean monthly demand: %.1f, trend %s\n", ec.MeanMonthlyDemand, ec.TrendDirection)
	fmt.Fprintf(&sb, "- urgency: %s (score %.0f), days to stockout: %.0f\n", ec.UrgencyLevel, ec.UrgencyScore, ec.TimeToStockoutDays)
	fmt.Fprintf(&sb, "- selected supplier: %s (score %.1f)\n", ec.SupplierID, ec.SupplierScore)
	fmt.Fprintf(&sb, "- recommended quantity: %.0f at total cost %.2f\n", ec.Quantity, ec.TotalCost)
	if len(ec.RiskFactors) > 0 {
		fmt.Fprintf(&sb, "- supplier risks: %s\n", strings.Join(ec.RiskFactors, "; "))
	}
	sb.WriteString("Explain the replenishment recommendation for a purchasing manager.")
	return sb.String()
}
