// Package analysis defines the generative-model boundary. The provider
// returns free-form text; the normalizer downstream is the actual contract.
package analysis

import "context"

// Analyzer is the generative backend capability. Implementations must
// honor ctx cancellation; the orchestrator imposes the timeout.
type Analyzer interface {
	// AnalyzeImage sends the selfie plus prompt and returns the raw model
	// text. budgetKES of 0 means the user declared no budget.
	AnalyzeImage(ctx context.Context, image []byte, mimeType string, budgetKES int) (string, error)

	// GenerateText runs a plain text prompt, used for routine regeneration.
	GenerateText(ctx context.Context, prompt string) (string, error)
}
