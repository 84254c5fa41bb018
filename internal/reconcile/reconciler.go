// Package reconcile orchestrates the two timing signals for one caption
// rewrite: the duration difference between the two media versions, and a
// fuzzy dialogue-text match between their dub captions. The text signal is
// only adopted when it agrees with the duration signal within a bound.
package reconcile

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/crsod/crsod/internal/apperrors"
	"github.com/crsod/crsod/internal/async"
	"github.com/crsod/crsod/internal/dialogue"
	"github.com/crsod/crsod/internal/metrics"
	"github.com/crsod/crsod/internal/models"
	"github.com/crsod/crsod/internal/timing"
)

// DefaultValidationBoundMs is how far a text-matched offset may deviate
// from the duration-derived offset before it is discarded.
const DefaultValidationBoundMs = 60000

// Rewrite is one registered caption-asset rewrite, keyed in the registry
// by the asset URL. The promises are launched when the metadata response
// is intercepted and shared between every rewrite registered from it; the
// subtitle maps are frozen snapshots taken at registration time.
type Rewrite struct {
	// TargetLanguage is the dub language whose caption is being rewritten.
	TargetLanguage string

	PrimaryDurationMs   *async.Promise[int64]
	AlternateDurationMs *async.Promise[int64]

	// Dub-language caption texts of both versions. Either may resolve to
	// absence when the version carries no caption in that language.
	PrimaryDubText   *async.Promise[models.CaptionText]
	AlternateDubText *async.Promise[models.CaptionText]

	PrimarySubtitles   map[string]models.CaptionAsset
	AlternateSubtitles map[string]models.CaptionAsset
}

// Reconciler rewrites caption scripts by the best available offset.
type Reconciler struct {
	validationBoundMs int64
	minMatchLength    int
	logger            zerolog.Logger
}

// New creates a Reconciler. Zero values fall back to the defaults.
func New(validationBoundMs int64, minMatchLength int, logger zerolog.Logger) *Reconciler {
	if validationBoundMs <= 0 {
		validationBoundMs = DefaultValidationBoundMs
	}
	if minMatchLength <= 0 {
		minMatchLength = dialogue.DefaultMinMatchLength
	}
	return &Reconciler{
		validationBoundMs: validationBoundMs,
		minMatchLength:    minMatchLength,
		logger:            logger,
	}
}

// Apply drives one rewrite to completion: await both durations, refine
// with the text signal when possible, shift every Dialogue timestamp of
// the script. The returned error is only non-nil when no signal at all
// could be recovered; the caller then forwards the original body.
// A script in a non-adjustable format is returned unchanged without error.
func (r *Reconciler) Apply(ctx context.Context, rw *Rewrite, script string) (string, error) {
	primaryMs, err := rw.PrimaryDurationMs.Await(ctx)
	if err != nil {
		return script, err
	}
	alternateMs, err := rw.AlternateDurationMs.Await(ctx)
	if err != nil {
		return script, err
	}

	durationOffset := primaryMs - alternateMs
	chosen := durationOffset
	source := metrics.SourceDuration

	if textOffset, ok := r.textOffset(ctx, rw); ok {
		if abs64(textOffset-durationOffset) > r.validationBoundMs {
			verr := &apperrors.ErrOffsetValidation{
				TextOffsetMs:     textOffset,
				DurationOffsetMs: durationOffset,
				BoundMs:          r.validationBoundMs,
			}
			r.logger.Warn().Err(verr).Str("language", rw.TargetLanguage).
				Msg("Discarding text-matched offset, keeping duration offset")
			source = metrics.SourceTextRejected
		} else {
			chosen = textOffset
			source = metrics.SourceText
		}
	}
	metrics.OffsetSourceTotal.WithLabelValues(source).Inc()

	adjusted, err := timing.AdjustScript(script, chosen)
	if err != nil {
		// A non-ASS body is copied verbatim; that is a pass-through, not a failure.
		r.logger.Debug().Err(err).Str("language", rw.TargetLanguage).
			Msg("Caption body is not adjustable, forwarding as-is")
		return script, nil
	}

	r.logger.Info().
		Int64("offset_ms", chosen).
		Int64("duration_offset_ms", durationOffset).
		Str("source", source).
		Str("language", rw.TargetLanguage).
		Msg("Rewrote caption timing")

	return adjusted, nil
}

// textOffset attempts the dialogue-match signal. Any degradation — a
// failed caption fetch, a missing track, a non-adjustable format, no
// sufficiently-long matching line — yields ok == false and the caller
// stays on the duration signal. A zero offset with ok == true is a real
// measurement, not an absence.
func (r *Reconciler) textOffset(ctx context.Context, rw *Rewrite) (int64, bool) {
	primaryAsset, ok := rw.PrimarySubtitles[rw.TargetLanguage]
	if !ok || !primaryAsset.Adjustable() {
		return 0, false
	}
	alternateAsset, ok := rw.AlternateSubtitles[rw.TargetLanguage]
	if !ok || !alternateAsset.Adjustable() {
		return 0, false
	}

	primaryText, err := rw.PrimaryDubText.Await(ctx)
	if err != nil {
		r.logger.Debug().Err(err).Msg("Primary dub caption fetch failed, skipping text signal")
		return 0, false
	}
	alternateText, err := rw.AlternateDubText.Await(ctx)
	if err != nil {
		r.logger.Debug().Err(err).Msg("Alternate dub caption fetch failed, skipping text signal")
		return 0, false
	}
	if !primaryText.Present || !alternateText.Present {
		return 0, false
	}

	return dialogue.EstimateOffset(primaryText.Body, alternateText.Body, r.minMatchLength)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
