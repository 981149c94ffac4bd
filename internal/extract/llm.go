package extract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/voice-agent/internal/model"
	"github.com/sells-group/voice-agent/pkg/anthropic"
)

// Reasons reported by LLMResult.
const (
	ReasonOK            = "ok"
	ReasonDisabled      = "disabled"
	ReasonTimeout       = "timeout"
	ReasonRequestFailed = "request_failed"
	ReasonEmptyResponse = "empty_response"
	ReasonInvalidJSON   = "invalid_json"
)

const llmSystemPrompt = `Du extrahierst Qualifizierungsdaten aus der Aussage eines Leads in einem deutschen Vertriebsgespraech.
Felder:
- interestLevel: "low" | "medium" | "high"
- budgetMonthlyEur: ganze Zahl >= 0 (monatliches Budget in Euro)
- companySizeEmployees: ganze Zahl > 0 (Mitarbeitende im betroffenen Team)
- timelineWeeks: ganze Zahl > 0 (Wochen bis zum Go-Live)
- hasAuthority: true | false (ist die Person entscheidungsbefugt)
- useCase: kurzer Text
- painPoint: kurzer Text
Antworte ausschliesslich mit einem JSON-Objekt. Gib nur Felder zurueck, die du sicher aus der Aussage ableiten kannst. Keine Erklaerungen.`

// LLMConfig configures the language-model extractor.
type LLMConfig struct {
	Model             string
	MaxTokens         int64
	Timeout           time.Duration
	RequestsPerSecond float64
}

// LLMResult is the outcome of one extraction request. Err is set for every
// reason other than ok and disabled.
type LLMResult struct {
	Patch  Patch
	Err    error
	Reason string
}

// LLMExtractor infers qualification fields through the Anthropic API. A nil
// *LLMExtractor or one built without a client is disabled and always yields
// an empty patch.
type LLMExtractor struct {
	client  anthropic.Client
	cfg     LLMConfig
	limiter *rate.Limiter
}

// NewLLMExtractor returns an extractor backed by client. Pass a nil client
// when no API key is configured.
func NewLLMExtractor(client anthropic.Client, cfg LLMConfig) *LLMExtractor {
	if cfg.Model == "" {
		cfg.Model = "claude-haiku-4-5-20251001"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 4 * time.Second
	}

	e := &LLMExtractor{client: client, cfg: cfg}
	if cfg.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return e
}

// Enabled reports whether the extractor will call the remote model.
func (e *LLMExtractor) Enabled() bool {
	return e != nil && e.client != nil
}

// Extract returns the sanitized patch, or an empty patch on any failure.
func (e *LLMExtractor) Extract(ctx context.Context, text string, existing model.Draft) Patch {
	res := e.Run(ctx, text, existing)
	if res.Err != nil {
		zap.L().Debug("llm extraction degraded to empty patch",
			zap.String("reason", res.Reason),
			zap.Error(res.Err),
		)
	}
	return res.Patch
}

// Run performs one extraction request and reports why it produced what it did.
// The call is bounded by the configured timeout; expiry yields ReasonTimeout.
func (e *LLMExtractor) Run(ctx context.Context, text string, existing model.Draft) LLMResult {
	if !e.Enabled() {
		return LLMResult{Reason: ReasonDisabled}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return failed(ctx, eris.Wrap(err, "extract: llm rate limit"))
		}
	}

	payload, err := json.Marshal(struct {
		Text     string      `json:"text"`
		Existing model.Draft `json:"existing"`
	}{Text: text, Existing: existing})
	if err != nil {
		return LLMResult{Reason: ReasonRequestFailed, Err: eris.Wrap(err, "extract: marshal llm payload")}
	}

	temp := 0.0
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		System:      []anthropic.SystemBlock{{Text: llmSystemPrompt, CacheControl: &anthropic.CacheControl{}}},
		Messages:    []anthropic.Message{{Role: "user", Content: string(payload)}},
		Temperature: &temp,
	})
	if err != nil {
		return failed(ctx, eris.Wrap(err, "extract: llm request"))
	}
	if resp == nil {
		return LLMResult{Reason: ReasonEmptyResponse, Err: eris.New("extract: empty llm response")}
	}
	resp.Usage.LogCost(e.cfg.Model, "")

	body := strings.TrimSpace(resp.Text())
	if body == "" {
		return LLMResult{Reason: ReasonEmptyResponse, Err: eris.New("extract: llm returned no text")}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleanJSON(body)), &raw); err != nil {
		return LLMResult{Reason: ReasonInvalidJSON, Err: eris.Wrap(err, "extract: parse llm json")}
	}

	return LLMResult{Patch: Sanitize(raw), Reason: ReasonOK}
}

func failed(ctx context.Context, err error) LLMResult {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return LLMResult{Reason: ReasonTimeout, Err: err}
	}
	return LLMResult{Reason: ReasonRequestFailed, Err: err}
}

// cleanJSON strips markdown code fences and surrounding prose from a model
// reply, leaving the outermost JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
