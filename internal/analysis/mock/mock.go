// Package mock provides a deterministic analyzer for development and tests.
package mock

import (
	"context"
	"time"

	"github.com/remboglow/facefit/internal/analysis"
)

// Analyzer returns canned responses without calling any external API.
type Analyzer struct {
	// Delay simulates model latency. Zero means respond immediately.
	Delay time.Duration
}

var _ analysis.Analyzer = (*Analyzer)(nil)

// New creates a mock analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

const cannedAnalysis = `{
  "skinAnalysis": {
    "skinTone": "deep",
    "undertone": "warm",
    "facialShape": "oval",
    "skinType": "combination",
    "concerns": ["hyperpigmentation", "uneven texture"]
  },
  "skincareRoutine": {
    "morning": [
      {"step": "Cleanse", "product": "Foaming Facial Cleanser", "brand": "CeraVe", "howToUse": "Massage onto damp skin, rinse", "why": "Removes overnight oil without stripping", "price": "Ksh 1,800"}
    ],
    "evening": [
      {"step": "Treat", "product": "Even & Matte Vitamin C Serum", "brand": "Garnier", "howToUse": "Apply 3 drops to clean skin", "why": "Fades dark spots over time", "price": "Ksh 1,200"}
    ],
    "weekly": [
      {"step": "Exfoliate", "product": "Gentle Scrub", "brand": "Simple", "frequency": "Twice a week", "price": "Ksh 850"}
    ]
  },
  "makeupRecommendations": {
    "foundation": "Maybelline Fit Me 360 Mocha",
    "lipColor": "Warm terracotta or brick red",
    "eyeMakeup": "Bronze and copper shimmer tones",
    "accessories": "Gold-toned jewelry"
  },
  "fashionRecommendations": {
    "style": "Elegant with Ankara accents",
    "colors": "Emerald green, mustard, burnt orange",
    "patterns": "Bold geometric Ankara prints",
    "occasion": "Works day to evening"
  },
  "productSuggestions": [
    {"brand": "Maybelline", "product": "Fit Me Matte + Poreless Foundation", "shade": "360 Mocha", "price": "Ksh 1,450", "priority": "essential", "isAffordable": true},
    {"brand": "Fenty", "product": "Gloss Bomb Universal Lip Luminizer", "shade": "Fenty Glow", "price": "Ksh 2,900", "priority": "recommended", "isAffordable": true}
  ]
}`

const cannedRoutine = `{
  "routineSchedule": {
    "morning": [
      {"step": "Cleanse", "product": "Micellar Cleansing Water", "brand": "Garnier", "time": "6:30 AM", "duration": "2 minutes", "howToUse": "Sweep over face with a cotton pad", "why": "Gentle morning refresh", "price": "Ksh 950"}
    ],
    "evening": [
      {"step": "Moisturize", "product": "Moisturising Lotion", "brand": "CeraVe", "time": "9:00 PM", "duration": "2 minutes", "howToUse": "Apply a thin layer to face and neck", "why": "Restores the skin barrier overnight", "price": "Ksh 2,100"}
    ],
    "weekly": [
      {"step": "Mask", "product": "Clay Mask", "brand": "Nivea", "frequency": "Once a week", "howToUse": "Leave on 10 minutes, rinse", "why": "Deep-cleans pores", "price": "Ksh 700"}
    ]
  },
  "routineDuration": {"morning": "10-15 minutes", "evening": "15-20 minutes"},
  "tips": ["Always wear sunscreen, even on cloudy days", "Drink at least 2 litres of water daily"],
  "estimatedTotalCost": "Ksh 3,750"
}`

// AnalyzeImage returns a fixed analysis payload regardless of input.
func (m *Analyzer) AnalyzeImage(ctx context.Context, _ []byte, _ string, _ int) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	return cannedAnalysis, nil
}

// GenerateText returns a fixed routine payload regardless of the prompt.
func (m *Analyzer) GenerateText(ctx context.Context, _ string) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	return cannedRoutine, nil
}

func (m *Analyzer) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.Delay):
		return nil
	}
}
