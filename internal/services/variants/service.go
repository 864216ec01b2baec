// -----------------------------------------------------------------------
// Variant Generation - Ad variant batches over research keywords
// -----------------------------------------------------------------------

package variants

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/pd-experiments/vendere/internal/common"
	"github.com/pd-experiments/vendere/internal/interfaces"
	"github.com/pd-experiments/vendere/internal/models"
	"github.com/pd-experiments/vendere/internal/tasks"
)

const defaultMaxVariants = 3

// Service generates ad variants for research keywords. One batch covers a
// set of keyword IDs; each keyword becomes one work item and one
// generation call.
type Service struct {
	keywords    interfaces.KeywordStorage
	llm         interfaces.LLMService
	limiter     *rate.Limiter
	concurrency int
	logger      arbor.ILogger
}

// NewService creates a variant generation service. Generation calls across
// all in-flight batches share one rate limiter.
func NewService(keywords interfaces.KeywordStorage, llm interfaces.LLMService, ratePerSecond float64, concurrency int, logger arbor.ILogger) *Service {
	if ratePerSecond <= 0 {
		ratePerSecond = 2
	}
	if concurrency < 1 {
		concurrency = 3
	}
	return &Service{
		keywords:    keywords,
		llm:         llm,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		concurrency: concurrency,
		logger:      logger,
	}
}

// NewBatch builds a variant-generation batch for the given keyword IDs
func (s *Service) NewBatch(owner string, keywordIDs []string, params models.GenerationParams) *Batch {
	if params.MaxVariants <= 0 {
		params.MaxVariants = defaultMaxVariants
	}
	return &Batch{
		service:    s,
		owner:      owner,
		keywordIDs: keywordIDs,
		params:     params,
	}
}

// Batch is one submitted variant-generation run
type Batch struct {
	service    *Service
	owner      string
	taskID     string
	keywordIDs []string
	params     models.GenerationParams
}

// Name identifies the batch type for logging
func (b *Batch) Name() string { return "variant_generation" }

// BindTask records the owning task ID so persisted variants can be traced
// back to the batch that produced them.
func (b *Batch) BindTask(taskID string) { b.taskID = taskID }

// Concurrency returns the fan-out group size
func (b *Batch) Concurrency() int { return b.service.concurrency }

// Resolve fetches the requested keywords with their denormalized metrics.
// A storage failure fails the whole batch; an ID that resolves to nothing
// still produces a work item, which fails individually during processing,
// so one stale ID never sinks its siblings.
func (b *Batch) Resolve(ctx context.Context) ([]tasks.WorkItem, error) {
	keywords, err := b.service.keywords.GetKeywords(ctx, b.keywordIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch keywords: %w", err)
	}

	byID := make(map[string]*models.ResearchKeyword, len(keywords))
	for _, kw := range keywords {
		byID[kw.ID] = kw
	}

	items := make([]tasks.WorkItem, 0, len(b.keywordIDs))
	for _, id := range b.keywordIDs {
		item := tasks.WorkItem{
			ID:     id,
			Params: map[string]interface{}{},
		}
		if kw, ok := byID[id]; ok {
			item.Params["keyword"] = kw
		}
		items = append(items, item)
	}
	return items, nil
}

// Processor returns the per-keyword worker
func (b *Batch) Processor() tasks.Processor {
	return &keywordProcessor{batch: b}
}

// Finalize aggregates what the batch actually produced
func (b *Batch) Finalize(ctx context.Context, outcomes []models.ItemOutcome) interface{} {
	totalVariants := 0
	for _, outcome := range outcomes {
		if outcome.Status != models.OutcomeSuccess {
			continue
		}
		if payload, ok := outcome.Payload.(*KeywordResult); ok {
			totalVariants += len(payload.VariantIDs)
		}
	}
	return &BatchSummary{
		Keywords:      len(outcomes),
		TotalVariants: totalVariants,
		TargetMarkets: b.params.TargetMarkets,
	}
}

// BatchSummary is the batch-level aggregate attached to the task result
type BatchSummary struct {
	Keywords      int      `json:"keywords"`
	TotalVariants int      `json:"total_variants"`
	TargetMarkets []string `json:"target_markets,omitempty"`
}

// KeywordResult is the per-item payload on a successful outcome
type KeywordResult struct {
	KeywordID  string   `json:"keyword_id"`
	Term       string   `json:"term"`
	VariantIDs []string `json:"variant_ids"`
}

// keywordProcessor generates and persists variants for one keyword
type keywordProcessor struct {
	batch *Batch
}

// generatedVariant is the JSON shape requested from the model
type generatedVariant struct {
	GeoTarget            string            `json:"geo_target"`
	ElementUpdates       map[string]string `json:"element_updates"`
	AudienceSegment      string            `json:"audience_segment"`
	PredictedPerformance float64           `json:"predicted_performance"`
	Rationale            string            `json:"rationale"`
}

// ProcessItem runs one generation call for one keyword. Every failure mode
// comes back as a failed outcome; nothing escapes to the orchestrator.
func (p *keywordProcessor) ProcessItem(ctx context.Context, item tasks.WorkItem) models.ItemOutcome {
	svc := p.batch.service

	keyword, ok := item.Params["keyword"].(*models.ResearchKeyword)
	if !ok || keyword == nil {
		return failedOutcome(item.ID, "keyword not found")
	}

	if err := svc.limiter.Wait(ctx); err != nil {
		return failedOutcome(item.ID, fmt.Sprintf("rate limiter wait failed: %v", err))
	}

	prompt := buildGenerationPrompt(keyword, p.batch.params)
	response, err := svc.llm.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: variantSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return failedOutcome(item.ID, fmt.Sprintf("generation call failed: %v", err))
	}

	generated, err := parseVariantResponse(response)
	if err != nil {
		svc.logger.Warn().
			Err(err).
			Str("keyword_id", keyword.ID).
			Msg("Variant response parse failed")
		return failedOutcome(item.ID, fmt.Sprintf("failed to parse generated variants: %v", err))
	}
	if len(generated) > p.batch.params.MaxVariants {
		generated = generated[:p.batch.params.MaxVariants]
	}

	variantIDs := make([]string, 0, len(generated))
	for _, gv := range generated {
		variant := &models.KeywordVariant{
			ID:                   common.NewVariantID(),
			KeywordID:            keyword.ID,
			TaskID:               p.batch.taskID,
			Keyword:              keyword.Term,
			GeoTarget:            gv.GeoTarget,
			ElementUpdates:       gv.ElementUpdates,
			AudienceSegment:      gv.AudienceSegment,
			PredictedPerformance: clampScore(gv.PredictedPerformance),
			Rationale:            gv.Rationale,
		}
		if err := svc.keywords.SaveVariant(ctx, variant); err != nil {
			return failedOutcome(item.ID, fmt.Sprintf("failed to persist variant: %v", err))
		}
		variantIDs = append(variantIDs, variant.ID)
	}

	// The denormalized count on the keyword is advisory. A failure here is
	// logged, not surfaced: the variants themselves are already durable.
	keyword.VariantCount += len(variantIDs)
	if err := svc.keywords.SaveKeyword(ctx, keyword); err != nil {
		svc.logger.Warn().
			Err(err).
			Str("keyword_id", keyword.ID).
			Msg("Failed to update keyword variant count")
	}

	return models.ItemOutcome{
		ItemID: item.ID,
		Status: models.OutcomeSuccess,
		Payload: &KeywordResult{
			KeywordID:  keyword.ID,
			Term:       keyword.Term,
			VariantIDs: variantIDs,
		},
	}
}

func failedOutcome(itemID, msg string) models.ItemOutcome {
	return models.ItemOutcome{
		ItemID: itemID,
		Status: models.OutcomeFailed,
		Error:  msg,
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

const variantSystemPrompt = `You are an advertising localization expert. You produce geo-targeted ad creative variants as strict JSON with no surrounding prose.`

// buildGenerationPrompt assembles the per-keyword generation request from
// the keyword's denormalized metrics and the batch parameters.
func buildGenerationPrompt(keyword *models.ResearchKeyword, params models.GenerationParams) string {
	var sb strings.Builder

	sb.WriteString("Generate ad creative variants for the following research keyword.\n\n")
	fmt.Fprintf(&sb, "Keyword: %s\n", keyword.Term)
	fmt.Fprintf(&sb, "Monthly search volume: %d\n", keyword.Volume)
	if keyword.Intent != "" {
		fmt.Fprintf(&sb, "Search intent: %s\n", keyword.Intent)
	}
	fmt.Fprintf(&sb, "Difficulty score: %.1f\n", keyword.Difficulty)

	if len(params.TargetMarkets) > 0 {
		fmt.Fprintf(&sb, "\nTarget markets: %s\n", strings.Join(params.TargetMarkets, ", "))
		sb.WriteString("Produce one variant per target market, adapted to local language and conventions.\n")
	}
	elementTypes := params.ElementTypes
	if len(elementTypes) == 0 {
		elementTypes = []string{"headline", "body", "cta"}
	}
	fmt.Fprintf(&sb, "Creative elements to rewrite: %s\n", strings.Join(elementTypes, ", "))
	fmt.Fprintf(&sb, "Produce at most %d variants.\n", params.MaxVariants)

	sb.WriteString(`
Respond with a JSON array only. Each element:
{
  "geo_target": "market identifier",
  "element_updates": {"element type": "optimized text"},
  "audience_segment": "who this variant targets",
  "predicted_performance": 0.0,
  "rationale": "one sentence on why this variant fits the market"
}
predicted_performance is a relative score between 0.0 and 1.0.`)

	return sb.String()
}

// parseVariantResponse parses the model output, tolerating markdown code
// fences around the JSON array.
func parseVariantResponse(response string) ([]generatedVariant, error) {
	cleaned := stripCodeFences(response)

	var generated []generatedVariant
	if err := json.Unmarshal([]byte(cleaned), &generated); err != nil {
		// Some models wrap the array in an object
		var wrapped struct {
			Variants []generatedVariant `json:"variants"`
		}
		if wrapErr := json.Unmarshal([]byte(cleaned), &wrapped); wrapErr == nil && len(wrapped.Variants) > 0 {
			return wrapped.Variants, nil
		}
		return nil, fmt.Errorf("invalid variant JSON: %w", err)
	}
	if len(generated) == 0 {
		return nil, fmt.Errorf("model returned no variants")
	}
	return generated, nil
}

// stripCodeFences removes markdown code fences from a model response
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
