package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/platefinder/internal/common"
	"github.com/MeKo-Tech/platefinder/internal/debug"
	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/ocr"
	"github.com/MeKo-Tech/platefinder/internal/plate"
	"github.com/MeKo-Tech/platefinder/internal/utils"
)

const (
	stageLocalize  = "localize"
	stageRecognize = "recognize"
	stageLookup    = "lookup"
)

// ProcessImage localizes the plate in img, recognizes its text and looks the
// plate up. Recognition only runs when a plate was found; lookup only runs
// when recognition produced text. id namespaces debug output.
func (p *Pipeline) ProcessImage(ctx context.Context, img image.Image, id string) (*PlateResult, error) {
	if p == nil || p.localizer == nil {
		return nil, errors.New("pipeline not initialized")
	}
	if err := utils.ValidateImage(img); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	slog.Debug("Starting image processing", "id", id, "width", bounds.Dx(), "height", bounds.Dy())

	total := common.NewTimer()
	sw := common.NewStopwatch()
	res := &PlateResult{ImageID: id, Width: bounds.Dx(), Height: bounds.Dy(), CandidateIndex: -1}

	working, err := utils.ResizeToWidth(img, p.cfg.ResizeWidth)
	if err != nil {
		return nil, err
	}
	sx, sy := utils.ScaleFactor(bounds, working.Bounds())
	sink := debug.Scope(p.sink, id)

	var (
		loc        plate.LocalizationResult
		candidates int
		locErr     error
	)
	sw.Time(stageLocalize, func() {
		r, c, e := p.localizer.LocalizeGray(utils.ToGray(working), sink)
		loc, candidates, locErr = r, len(c), e
	})
	if locErr != nil {
		return nil, locErr
	}
	res.localization = loc
	res.Candidates = candidates
	res.CandidateIndex = loc.CandidateIndex()

	if loc.Found() {
		contour, _ := loc.Contour()
		if sx != 1 || sy != 1 {
			contour = contour.Scale(sx, sy)
		}
		box := contour.BoundingBox()
		res.Found = true
		res.Box = &box
		res.AspectRatio, _ = box.AspectRatio()
		res.Polygon = contour.MinAreaRect()

		if err := p.recognizeAndLookup(ctx, loc, res, sw); err != nil {
			return nil, err
		}
	}

	ms := sw.Milliseconds()
	res.Processing.LocalizeMs = ms[stageLocalize]
	res.Processing.RecognizeMs = ms[stageRecognize]
	res.Processing.LookupMs = ms[stageLookup]
	res.Processing.TotalMs = float64(total.Stop().Microseconds()) / 1000
	p.profiler.Record(res, sw)

	slog.Debug("Image processed", "id", id, "found", res.Found, "plate", res.Plate,
		"lookup", res.LookupStatus, "total_ms", res.Processing.TotalMs)
	return res, nil
}

func (p *Pipeline) recognizeAndLookup(ctx context.Context, loc plate.LocalizationResult,
	res *PlateResult, sw *common.Stopwatch,
) error {
	if p.recognizer == nil {
		res.LookupStatus = LookupSkipped
		return nil
	}

	var (
		text string
		err  error
	)
	sw.Time(stageRecognize, func() {
		text, err = p.recognizer.Recognize(ctx, loc.ROI(), p.cfg.OCR)
	})
	if err != nil {
		return fmt.Errorf("recognize plate: %w", err)
	}
	res.RawText = ocr.CleanupText(text)
	res.Plate = ocr.NormalizePlate(res.RawText, p.cfg.OCR.AllowedCharacters)

	if p.store == nil || res.Plate == "" {
		res.LookupStatus = LookupSkipped
		return nil
	}

	var rec lookup.Record
	sw.Time(stageLookup, func() {
		rec, err = p.store.Lookup(ctx, res.Plate)
	})
	switch {
	case errors.Is(err, lookup.ErrNotFound):
		res.LookupStatus = LookupNotFound
	case err != nil:
		return fmt.Errorf("lookup plate %s: %w", res.Plate, err)
	default:
		res.LookupStatus = LookupFound
		res.Vehicle = &rec
	}
	return nil
}

// ProcessImages processes inputs sequentially and returns results in order.
func (p *Pipeline) ProcessImages(ctx context.Context, inputs []Input) ([]*PlateResult, error) {
	if len(inputs) == 0 {
		return nil, errors.New("no images provided")
	}
	results := make([]*PlateResult, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.ProcessImage(ctx, in.Image, in.ID)
		if err != nil {
			return results, fmt.Errorf("image %d (%s): %w", i, in.ID, err)
		}
		results[i] = res
	}
	return results, nil
}
