package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// TextDetectionAPI is the subset of the Rekognition client used here.
type TextDetectionAPI interface {
	DetectText(ctx context.Context, in *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// Rekognition recognizes text with AWS Rekognition DetectText. Among the
// returned LINE detections the most confident one wins after filtering to
// the allowed characters.
type Rekognition struct {
	client        TextDetectionAPI
	minConfidence float32
}

// NewRekognition loads the default AWS configuration (environment, shared
// config, instance role) for region.
func NewRekognition(ctx context.Context, region string, minConfidence float64) (*Rekognition, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewRekognitionWithClient(rekognition.NewFromConfig(cfg), minConfidence), nil
}

// NewRekognitionWithClient wraps an existing client.
func NewRekognitionWithClient(client TextDetectionAPI, minConfidence float64) *Rekognition {
	return &Rekognition{client: client, minConfidence: float32(minConfidence)}
}

// Recognize implements Recognizer. The page segmentation mode has no
// Rekognition equivalent and is ignored.
func (r *Rekognition) Recognize(ctx context.Context, roi image.Image, opts Options) (string, error) {
	if err := checkROI(roi); err != nil {
		return "", err
	}
	data, err := utils.EncodePNG(roi)
	if err != nil {
		return "", fmt.Errorf("encode roi: %w", err)
	}

	out, err := r.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: data},
	})
	if err != nil {
		return "", fmt.Errorf("rekognition detect text: %w", err)
	}

	var (
		best     string
		bestConf float32
	)
	for _, d := range out.TextDetections {
		if d.Type != types.TextTypesLine {
			continue
		}
		conf := aws.ToFloat32(d.Confidence)
		text := filterAllowed(aws.ToString(d.DetectedText), opts.AllowedCharacters)
		slog.Debug("Rekognition line", "text", text, "confidence", conf)
		if text == "" || conf < r.minConfidence {
			continue
		}
		if best == "" || conf > bestConf {
			best, bestConf = text, conf
		}
	}
	return best, nil
}

// filterAllowed upper-cases s and keeps only runes in allowed. Spaces and
// separators in a line ("AB 123") are dropped that way.
func filterAllowed(s, allowed string) string {
	s = strings.ToUpper(s)
	if allowed == "" {
		return strings.TrimSpace(s)
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(allowed, r) {
			return r
		}
		return -1
	}, s)
}
