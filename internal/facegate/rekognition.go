package facegate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"

	"github.com/remboglow/facefit/internal/domain"
)

const (
	errCodeInvalidParameter = "InvalidParameterException"
	errCodeAccessDenied     = "AccessDeniedException"

	// minFaceConfidence is the minimum Rekognition confidence for a
	// detection to count as a face.
	minFaceConfidence = 80.0
)

// DetectFacesAPI is the slice of the Rekognition client the gate uses.
type DetectFacesAPI interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

// RekognitionGate checks uploads with AWS Rekognition DetectFaces.
type RekognitionGate struct {
	client DetectFacesAPI
	logger *slog.Logger
}

var _ Gate = (*RekognitionGate)(nil)

// NewRekognitionGate creates a gate backed by AWS Rekognition, using the
// default credential chain for the given region.
func NewRekognitionGate(ctx context.Context, region string, logger *slog.Logger) (*RekognitionGate, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &RekognitionGate{
		client: rekognition.NewFromConfig(awsCfg),
		logger: logger,
	}, nil
}

// NewRekognitionGateWithClient creates a gate around an existing client.
func NewRekognitionGateWithClient(client DetectFacesAPI, logger *slog.Logger) *RekognitionGate {
	return &RekognitionGate{
		client: client,
		logger: logger,
	}
}

// Check passes only when exactly one confident face is present. Gate
// transport failures do not block the upload: the downstream model gives its
// own verdict, so an unreachable gate degrades to a pass.
func (g *RekognitionGate) Check(ctx context.Context, image []byte) error {
	input := &rekognition.DetectFacesInput{
		Image: &types.Image{
			Bytes: image,
		},
		Attributes: []types.Attribute{types.AttributeDefault},
	}

	output, err := g.client.DetectFaces(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case errCodeInvalidParameter:
				return domain.ErrUnsupportedImageType.WithError(err)
			case errCodeAccessDenied:
				g.logger.Error("rekognition access denied, passing image through", "error", err)
				return nil
			}
		}
		g.logger.Warn("face gate unavailable, passing image through", "error", err)
		return nil
	}

	faces := 0
	for _, detail := range output.FaceDetails {
		if detail.Confidence != nil && float64(*detail.Confidence) >= minFaceConfidence {
			faces++
		}
	}

	switch {
	case faces == 0:
		return domain.ErrNoFaceDetected
	case faces > 1:
		return domain.ErrMultipleFaces
	}

	return nil
}
