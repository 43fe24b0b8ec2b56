// Package facegate screens uploads before they are spent against quota.
// Rejecting a landscape photo up front beats charging the user's only free
// analysis for an image the model cannot profile.
package facegate

import "context"

// Gate checks that an image contains exactly one analyzable face.
type Gate interface {
	// Check returns nil when the image passes. Failures are reported as
	// domain errors (no face, multiple faces) or transport errors.
	Check(ctx context.Context, image []byte) error
}

// Noop passes every image. Used when the gate is disabled in config.
type Noop struct{}

// NewNoop creates a pass-through gate.
func NewNoop() *Noop {
	return &Noop{}
}

func (*Noop) Check(context.Context, []byte) error {
	return nil
}
