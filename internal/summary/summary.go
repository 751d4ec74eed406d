// Package summary generates the optional free-text AI commentary attached
// to validation reports. It is an external collaborator of the engine: the
// engine only ever sees the returned text, supplied by the caller.
package summary

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/kval/internal/config"
	"github.com/sells-group/kval/internal/model"
	"github.com/sells-group/kval/internal/resilience"
	"github.com/sells-group/kval/pkg/anthropic"
)

// Summarizer produces free-text commentary for a validation run.
type Summarizer interface {
	Summarize(ctx context.Context, snap *model.Snapshot, pol *model.Policy, report *model.ValidationReport) (string, error)
}

const systemPrompt = `You are a knowledge validation assistant. ` +
	`Given a knowledge snapshot, the reference policy it was validated against, ` +
	`and the deterministic findings, produce a clear validation commentary with: ` +
	`(1) a coherence/alignment summary, ` +
	`(2) the most important inconsistencies, duplicates, and obsolete information, ` +
	`(3) clarification questions for the policy owner. ` +
	`Plain text only; do not return JSON.`

// AnthropicSummarizer implements Summarizer on top of the Anthropic API,
// with client-side rate limiting and retries for transient failures.
type AnthropicSummarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewAnthropicSummarizer builds a summarizer from configuration.
func NewAnthropicSummarizer(client anthropic.Client, cfg config.AnthropicConfig) *AnthropicSummarizer {
	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 30
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicSummarizer{
		client:    client,
		model:     cfg.Model,
		maxTokens: maxTokens,
		limiter:   rate.NewLimiter(rate.Limit(rpm/60), 1),
		retry:     resilience.DefaultRetryConfig(),
	}
}

// Summarize builds the prompt from the snapshot, policy, and deterministic
// report and asks the model for commentary.
func (s *AnthropicSummarizer) Summarize(ctx context.Context, snap *model.Snapshot, pol *model.Policy, report *model.ValidationReport) (string, error) {
	prompt, err := buildUserPrompt(snap, pol, report)
	if err != nil {
		return "", err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "summary: rate limit wait")
	}

	retryCfg := s.retry
	retryCfg.OnRetry = func(attempt int, err error) {
		zap.L().Warn("summary: retrying AI call",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return s.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     s.model,
			MaxTokens: s.maxTokens,
			System:    []anthropic.SystemBlock{{Text: systemPrompt}},
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return "", eris.Wrap(err, "summary: create message")
	}

	resp.Usage.LogCost(s.model, "summary")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.New("summary: empty model response")
	}
	return text, nil
}

// buildUserPrompt serializes the validation inputs and findings for the model.
func buildUserPrompt(snap *model.Snapshot, pol *model.Policy, report *model.ValidationReport) (string, error) {
	snapJSON, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "summary: marshal snapshot")
	}
	polJSON, err := json.MarshalIndent(pol, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "summary: marshal policy")
	}

	var b strings.Builder
	b.WriteString("Knowledge snapshot JSON:\n")
	b.Write(snapJSON)
	b.WriteString("\n\nReference policy JSON:\n")
	b.Write(polJSON)

	if report != nil {
		reportJSON, err := json.MarshalIndent(report.Issues, "", "  ")
		if err != nil {
			return "", eris.Wrap(err, "summary: marshal issues")
		}
		b.WriteString("\n\nDeterministic findings JSON:\n")
		b.Write(reportJSON)
	}

	return b.String(), nil
}
