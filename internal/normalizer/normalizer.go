// Package normalizer turns raw generative-model text into a validated
// recommendation bundle. The model output is untrusted: it may be fenced,
// wrapped in prose, missing fields, or not JSON at all. This package is the
// only place that deals with that mess.
package normalizer

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/remboglow/facefit/internal/catalog"
	"github.com/remboglow/facefit/internal/domain"
)

const (
	// DefaultBudgetKES applies when the user declared no budget.
	DefaultBudgetKES = 10000

	// AffordableCeilingKES is the fixed threshold for the affordability
	// flag, independent of the user's budget.
	AffordableCeilingKES = 10000
)

// Result is a normalized bundle plus how it was obtained.
type Result struct {
	Bundle        *domain.RecommendationBundle
	Quality       domain.ParseQuality
	MissingFields []string
}

// Normalizer validates and enriches raw analysis text.
type Normalizer struct {
	catalog catalog.Lookup
	logger  *slog.Logger
}

// New creates a Normalizer.
func New(cat catalog.Lookup, logger *slog.Logger) *Normalizer {
	return &Normalizer{
		catalog: cat,
		logger:  logger,
	}
}

// Raw wire shapes. Prices arrive as free-form strings and are re-parsed.
type rawStep struct {
	Step      string `json:"step"`
	Product   string `json:"product"`
	Brand     string `json:"brand"`
	Time      string `json:"time"`
	Duration  string `json:"duration"`
	Frequency string `json:"frequency"`
	HowToUse  string `json:"howToUse"`
	Why       string `json:"why"`
	Price     string `json:"price"`
}

type rawProduct struct {
	Brand    string `json:"brand"`
	Product  string `json:"product"`
	Shade    string `json:"shade"`
	Price    string `json:"price"`
	Priority string `json:"priority"`
	ImageURL string `json:"imageUrl"`
}

type rawBundle struct {
	SkinAnalysis domain.SkinProfile `json:"skinAnalysis"`
	Skincare     struct {
		Morning []rawStep `json:"morning"`
		Evening []rawStep `json:"evening"`
		Weekly  []rawStep `json:"weekly"`
	} `json:"skincareRoutine"`
	Makeup   map[string]string `json:"makeupRecommendations"`
	Fashion  map[string]string `json:"fashionRecommendations"`
	Products []rawProduct      `json:"productSuggestions"`
}

// Normalize parses raw model text into a bundle. Structured JSON yields a
// strict result; prose falls back to keyword extraction and yields a
// degraded one. budgetKES of 0 means no declared budget and the default
// applies. Products above the budget are dropped; a product priced exactly
// at the budget survives.
func (n *Normalizer) Normalize(raw string, budgetKES int) (Result, error) {
	if budgetKES <= 0 {
		budgetKES = DefaultBudgetKES
	}

	text := stripFences(raw)

	if span, ok := extractJSONSpan(text); ok {
		var parsed rawBundle
		if err := json.Unmarshal([]byte(span), &parsed); err == nil {
			return n.normalizeStrict(parsed, budgetKES)
		} else if n.logger != nil {
			n.logger.Debug("structured parse failed, trying prose fallback", "error", err)
		}
	}

	return n.normalizeProse(text)
}

func (n *Normalizer) normalizeStrict(parsed rawBundle, budgetKES int) (Result, error) {
	if missing := missingProfileFields(parsed.SkinAnalysis); len(missing) > 0 {
		if n.logger != nil {
			n.logger.Warn("analysis response incomplete", "missing_fields", missing)
		}
		return Result{}, domain.ErrIncompleteAnalysis
	}

	bundle := &domain.RecommendationBundle{
		SkinProfile: parsed.SkinAnalysis,
		SkincareRoutine: domain.SkincareRoutine{
			Morning: n.normalizeSteps(parsed.Skincare.Morning),
			Evening: n.normalizeSteps(parsed.Skincare.Evening),
			Weekly:  n.normalizeSteps(parsed.Skincare.Weekly),
		},
		MakeupRecommendations:  parsed.Makeup,
		FashionRecommendations: parsed.Fashion,
		ProductSuggestions:     n.normalizeProducts(parsed.Products, budgetKES),
	}

	return Result{Bundle: bundle, Quality: domain.ParseStrict}, nil
}

func (n *Normalizer) normalizeProse(text string) (Result, error) {
	profile, missing, recovered := extractProfileFromProse(text)
	if recovered == 0 {
		return Result{}, domain.ErrNoStructuredData
	}

	if n.logger != nil {
		n.logger.Warn("degraded analysis parse", "recovered_fields", recovered, "missing_fields", missing)
	}

	bundle := &domain.RecommendationBundle{
		SkinProfile:            profile,
		MakeupRecommendations:  map[string]string{},
		FashionRecommendations: map[string]string{},
	}

	return Result{Bundle: bundle, Quality: domain.ParseDegraded, MissingFields: missing}, nil
}

// normalizeProducts re-parses prices, applies the budget cut, recomputes the
// affordability flag, and resolves purchase links from the catalog. The
// model's own isAffordable claim is discarded.
func (n *Normalizer) normalizeProducts(products []rawProduct, budgetKES int) []domain.Product {
	out := make([]domain.Product, 0, len(products))

	for _, p := range products {
		if p.Brand == "" && p.Product == "" {
			continue
		}

		prod := domain.Product{
			Brand:    p.Brand,
			Name:     p.Product,
			Shade:    p.Shade,
			Price:    p.Price,
			ImageURL: p.ImageURL,
			Priority: p.Priority,
		}

		if amount, ok := ParsePrice(p.Price); ok {
			if amount > budgetKES {
				continue
			}
			prod.PriceKES = amount
			prod.Price = FormatKES(amount)
			prod.IsAffordable = amount <= AffordableCeilingKES
		}

		if entry, ok := n.catalog.Lookup(p.Brand, p.Product); ok {
			prod.BuyURL = entry.URL
			if prod.ImageURL == "" {
				prod.ImageURL = entry.ImageURL
			}
		}

		out = append(out, prod)
	}

	return out
}

func (n *Normalizer) normalizeSteps(steps []rawStep) []domain.RoutineStep {
	if len(steps) == 0 {
		return nil
	}

	out := make([]domain.RoutineStep, 0, len(steps))
	for _, s := range steps {
		step := domain.RoutineStep{
			Step:      s.Step,
			Product:   s.Product,
			Brand:     s.Brand,
			Time:      s.Time,
			Duration:  s.Duration,
			Frequency: s.Frequency,
			HowToUse:  s.HowToUse,
			Why:       s.Why,
			Price:     s.Price,
		}

		if amount, ok := ParsePrice(s.Price); ok {
			step.PriceKES = amount
			step.Price = FormatKES(amount)
		}

		if entry, ok := n.catalog.Lookup(s.Brand, s.Product); ok {
			step.BuyURL = entry.URL
			step.ImageURL = entry.ImageURL
		}

		out = append(out, step)
	}

	return out
}

type rawRoutine struct {
	Schedule struct {
		Morning []rawStep `json:"morning"`
		Evening []rawStep `json:"evening"`
		Weekly  []rawStep `json:"weekly"`
	} `json:"routineSchedule"`
	Duration struct {
		Morning string `json:"morning"`
		Evening string `json:"evening"`
	} `json:"routineDuration"`
	Tips               []string `json:"tips"`
	EstimatedTotalCost string   `json:"estimatedTotalCost"`
}

// NormalizeRoutine parses a routine-regeneration response. Routines have no
// prose fallback: a response that does not parse is rejected outright.
func (n *Normalizer) NormalizeRoutine(raw string) (*domain.DailyRoutine, error) {
	text := stripFences(raw)

	span, ok := extractJSONSpan(text)
	if !ok {
		return nil, domain.ErrNoStructuredData
	}

	var parsed rawRoutine
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		return nil, domain.ErrNoStructuredData.WithError(err)
	}

	routine := &domain.DailyRoutine{
		Schedule: domain.SkincareRoutine{
			Morning: n.normalizeSteps(parsed.Schedule.Morning),
			Evening: n.normalizeSteps(parsed.Schedule.Evening),
			Weekly:  n.normalizeSteps(parsed.Schedule.Weekly),
		},
		Tips:               parsed.Tips,
		EstimatedTotalCost: parsed.EstimatedTotalCost,
		MorningDuration:    parsed.Duration.Morning,
		EveningDuration:    parsed.Duration.Evening,
	}

	if len(routine.Schedule.Morning) == 0 && len(routine.Schedule.Evening) == 0 {
		return nil, domain.ErrNoStructuredData
	}

	return routine, nil
}

func missingProfileFields(p domain.SkinProfile) []string {
	var missing []string
	if strings.TrimSpace(p.SkinTone) == "" {
		missing = append(missing, "skinTone")
	}
	if strings.TrimSpace(p.Undertone) == "" {
		missing = append(missing, "undertone")
	}
	if strings.TrimSpace(p.FacialShape) == "" {
		missing = append(missing, "facialShape")
	}
	if strings.TrimSpace(p.SkinType) == "" {
		missing = append(missing, "skinType")
	}
	return missing
}

// stripFences removes markdown code fences the model wraps JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// drop the language tag line ("json", "JSON", or empty)
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractJSONSpan returns the widest candidate object: from the first '{'
// to the last '}'. Greedy on purpose, so nested objects and prose before or
// after the JSON do not truncate the span.
func extractJSONSpan(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(s, "}")
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}
