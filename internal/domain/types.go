package domain

import (
	"time"

	"github.com/google/uuid"
)

// Identity ties a request to the durable user and the current browser session.
// The user id survives across sessions; the session id does not.
type Identity struct {
	UserID    string
	SessionID string
}

// Capture source for an upload attempt
const (
	SourceFilePicker = "file"
	SourceCamera     = "camera"
)

// UploadAttempt is one user-submitted image. It lives only inside the
// orchestrator flow and is discarded after analysis completes or on reset.
type UploadAttempt struct {
	Data      []byte
	MimeType  string
	Size      int
	Source    string
	BudgetKES int // 0 means no budget declared
}

// Undertone values for a skin profile
const (
	UndertoneWarm    = "warm"
	UndertoneCool    = "cool"
	UndertoneNeutral = "neutral"
)

// Facial shape values for a skin profile
const (
	ShapeOval    = "oval"
	ShapeRound   = "round"
	ShapeSquare  = "square"
	ShapeHeart   = "heart"
	ShapeDiamond = "diamond"
	ShapeOblong  = "oblong"
)

// NotSpecified marks a field the fallback extraction could not recover.
const NotSpecified = "Not specified"

// SkinProfile is the validated facial analysis. Every field is populated
// before a profile is considered usable; the fallback pass fills gaps with
// NotSpecified rather than leaving empty strings.
type SkinProfile struct {
	SkinTone    string   `json:"skinTone"`
	Undertone   string   `json:"undertone"`
	FacialShape string   `json:"facialShape"`
	SkinType    string   `json:"skinType"`
	Concerns    []string `json:"concerns"`
}

// RoutineStep is one step of a skincare routine.
type RoutineStep struct {
	Step      string `json:"step"`
	Product   string `json:"product"`
	Brand     string `json:"brand"`
	Time      string `json:"time,omitempty"`
	Duration  string `json:"duration,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	HowToUse  string `json:"howToUse,omitempty"`
	Why       string `json:"why,omitempty"`
	PriceKES  int    `json:"priceKes,omitempty"`
	Price     string `json:"price,omitempty"`
	BuyURL    string `json:"buyUrl,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// SkincareRoutine groups ordered routine steps by moment of day.
type SkincareRoutine struct {
	Morning []RoutineStep `json:"morning,omitempty"`
	Evening []RoutineStep `json:"evening,omitempty"`
	Weekly  []RoutineStep `json:"weekly,omitempty"`
}

// DailyRoutine is a regenerated routine for an existing skin profile.
type DailyRoutine struct {
	Schedule           SkincareRoutine `json:"routineSchedule"`
	Tips               []string        `json:"tips,omitempty"`
	EstimatedTotalCost string          `json:"estimatedTotalCost,omitempty"`
	MorningDuration    string          `json:"morningDuration,omitempty"`
	EveningDuration    string          `json:"eveningDuration,omitempty"`
}

// Product priority levels
const (
	PriorityEssential   = "essential"
	PriorityRecommended = "recommended"
)

// Product is a purchasable suggestion. Prices are whole Kenyan shillings;
// every product surfaced to the user satisfies PriceKES <= the active budget.
type Product struct {
	Brand        string `json:"brand"`
	Name         string `json:"product"`
	Shade        string `json:"shade,omitempty"`
	PriceKES     int    `json:"priceKes"`
	Price        string `json:"price"`
	BuyURL       string `json:"buyUrl,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	IsAffordable bool   `json:"isAffordable"`
	Priority     string `json:"priority,omitempty"`
}

// RecommendationBundle is the validated result of one analysis. It is built
// once per successful analysis, never mutated, and replaced wholesale by the
// next analysis.
type RecommendationBundle struct {
	SkinProfile            SkinProfile       `json:"skinAnalysis"`
	SkincareRoutine        SkincareRoutine   `json:"skincareRoutine"`
	MakeupRecommendations  map[string]string `json:"makeupRecommendations"`
	FashionRecommendations map[string]string `json:"fashionRecommendations"`
	ProductSuggestions     []Product         `json:"productSuggestions"`
}

// ParseQuality tags how a bundle was obtained from the raw model output.
type ParseQuality string

const (
	// ParseStrict means the bundle came from a clean JSON parse.
	ParseStrict ParseQuality = "strict"
	// ParseDegraded means the bundle came from the keyword fallback pass
	// and carries NotSpecified sentinels for the fields listed alongside it.
	ParseDegraded ParseQuality = "degraded"
)

// Payment session states
const (
	PaymentPending  = "pending"
	PaymentVerified = "verified"
	PaymentFailed   = "failed"
)

// PaymentSession is the transient record of one checkout round-trip.
type PaymentSession struct {
	Reference string `json:"reference"`
	AmountKES int    `json:"amount_kes"`
	Status    string `json:"status"`
}

// AnalysisRecord is the persisted trace of a successful analysis.
type AnalysisRecord struct {
	ID           uuid.UUID
	UserID       string
	SessionID    string
	ImageSize    int
	ImageType    string
	BudgetKES    int
	ParseQuality ParseQuality
	Bundle       *RecommendationBundle
	CreatedAt    time.Time
}
