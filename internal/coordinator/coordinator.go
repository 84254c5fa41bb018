// Package coordinator ties the caption policy and the timing reconciler
// to the interception boundary: it rewrites metadata responses, registers
// pending caption rewrites keyed by asset URL, and resolves intercepted
// caption responses against that registry.
package coordinator

import (
	"context"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/crsod/crsod/internal/async"
	"github.com/crsod/crsod/internal/client"
	"github.com/crsod/crsod/internal/config"
	"github.com/crsod/crsod/internal/intercept"
	"github.com/crsod/crsod/internal/metrics"
	"github.com/crsod/crsod/internal/models"
	"github.com/crsod/crsod/internal/policy"
	"github.com/crsod/crsod/internal/reconcile"
)

// DefaultRegistryCapacity bounds pending rewrites. Caption requests may
// never materialise (cached responses, navigation away), so the oldest
// registration is evicted once the registry is full.
const DefaultRegistryCapacity = 50

// Coordinator owns the pending-rewrite registry and drives both
// intercept paths. All registry access goes through it; there is no
// ambient global state.
type Coordinator struct {
	platform   client.Platform
	reconciler *reconcile.Reconciler
	registry   *lru.Cache[string, *reconcile.Rewrite]

	alternateLanguage    string
	emptyScriptThreshold int
	logger               zerolog.Logger
}

// New creates a Coordinator from config.
func New(cfg *config.Config, platform client.Platform, logger zerolog.Logger) (*Coordinator, error) {
	capacity := cfg.RegistryCapacity
	if capacity <= 0 {
		capacity = DefaultRegistryCapacity
	}

	registry, err := lru.New[string, *reconcile.Rewrite](capacity)
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		platform:             platform,
		reconciler:           reconcile.New(cfg.OffsetValidationBoundMs, cfg.MinMatchLength, logger),
		registry:             registry,
		alternateLanguage:    cfg.AlternateLanguage,
		emptyScriptThreshold: cfg.EmptyScriptThreshold,
		logger:               logger,
	}, nil
}

// MetadataTransform returns the intercept transform for a metadata
// response. The header set of the intercepted request authenticates every
// derived fetch.
func (c *Coordinator) MetadataTransform(header http.Header) intercept.Transform {
	return func(ctx context.Context, body []byte) ([]byte, error) {
		return c.HandleMetadata(ctx, header, body)
	}
}

// CaptionTransform returns the intercept transform for a caption-asset
// response identified by its request URL.
func (c *Coordinator) CaptionTransform(url string) intercept.Transform {
	return func(ctx context.Context, body []byte) ([]byte, error) {
		return c.HandleCaption(ctx, url, body)
	}
}

// HandleMetadata inspects one metadata response. When the viewer is
// already watching the alternate-language version the body passes through
// untouched. Otherwise the alternate version's caption map is merged in
// per policy and a pending rewrite is registered for every caption track
// actually added or replaced, before the response is forwarded.
func (c *Coordinator) HandleMetadata(ctx context.Context, header http.Header, body []byte) ([]byte, error) {
	descriptor, err := models.ParseMediaDescriptor(body)
	if err != nil {
		return nil, err
	}

	selfGUID, err := policy.ResolveSelfGUID(descriptor)
	if err != nil {
		return nil, err
	}
	altGUID, err := policy.ResolveAltGUID(descriptor, c.alternateLanguage)
	if err != nil {
		return nil, err
	}
	if selfGUID == altGUID {
		c.logger.Debug().Str("guid", selfGUID).Msg("Already watching the alternate-language version")
		return body, nil
	}

	altDescriptor, err := c.platform.FetchMetadata(ctx, altGUID, header)
	if err != nil {
		return nil, err
	}

	dubLang := descriptor.AudioLocale
	candidate, err := c.fetchOwnDubCaption(ctx, descriptor, dubLang, header)
	if err != nil {
		return nil, err
	}
	replaceDub := policy.ShouldReplaceDubCaption(candidate, c.emptyScriptThreshold)

	// Snapshot before mutation: the text signal must compare the
	// version's own captions, not the ones about to be copied in.
	primarySnapshot := descriptor.SnapshotSubtitles()

	changed := policy.ReconcileCaptionMap(descriptor.Subtitles, altDescriptor.Subtitles, dubLang, replaceDub)
	if len(changed) == 0 {
		c.logger.Debug().Str("guid", selfGUID).Msg("Caption map already complete, nothing to substitute")
		return descriptor.MarshalBody()
	}

	c.logger.Info().
		Str("guid", selfGUID).
		Str("alt_guid", altGUID).
		Bool("replace_dub", replaceDub).
		Strs("languages", changed).
		Strs("alternate_available", altDescriptor.SubtitleLanguages()).
		Msg("Substituting caption tracks")

	c.registerRewrites(ctx, descriptor, altDescriptor, changed, reuse{
		selfGUID:        selfGUID,
		altGUID:         altGUID,
		dubLang:         dubLang,
		header:          header,
		primarySnapshot: primarySnapshot,
		primaryDubText:  async.Resolved(candidate, nil),
	})

	return descriptor.MarshalBody()
}

// reuse carries the per-metadata-intercept context shared by every
// rewrite registered from it, so the duration and caption fetches are
// issued once no matter how many tracks changed.
type reuse struct {
	selfGUID        string
	altGUID         string
	dubLang         string
	header          http.Header
	primarySnapshot map[string]models.CaptionAsset
	primaryDubText  *async.Promise[models.CaptionText]
}

func (c *Coordinator) registerRewrites(ctx context.Context, descriptor, altDescriptor *models.MediaDescriptor, changed []string, shared reuse) {
	// Background fetches outlive the metadata response; they are awaited
	// when the matching caption response arrives.
	fetchCtx := context.WithoutCancel(ctx)

	primaryDuration := async.Go(func() (int64, error) {
		return c.platform.FetchDuration(fetchCtx, shared.selfGUID, shared.header)
	})
	alternateDuration := async.Go(func() (int64, error) {
		return c.platform.FetchDuration(fetchCtx, shared.altGUID, shared.header)
	})
	alternateDubText := c.captionPromise(fetchCtx, altDescriptor.Subtitles, shared.dubLang, shared.header)

	alternateSnapshot := altDescriptor.SnapshotSubtitles()

	for _, lang := range changed {
		asset, ok := descriptor.Subtitles[lang]
		if !ok || asset.URL == "" {
			continue
		}
		metrics.CaptionsReplacedTotal.WithLabelValues(lang).Inc()
		evicted := c.registry.Add(asset.URL, &reconcile.Rewrite{
			TargetLanguage:      lang,
			PrimaryDurationMs:   primaryDuration,
			AlternateDurationMs: alternateDuration,
			PrimaryDubText:      shared.primaryDubText,
			AlternateDubText:    alternateDubText,
			PrimarySubtitles:    shared.primarySnapshot,
			AlternateSubtitles:  alternateSnapshot,
		})
		if evicted {
			metrics.RegistryEvictionsTotal.Inc()
			c.logger.Debug().Str("url", asset.URL).Msg("Registry full, evicted oldest pending rewrite")
		}
	}
}

// HandleCaption resolves one intercepted caption response. Unregistered
// URLs pass through unchanged; that also covers unrelated same-origin
// assets such as video fragments. A registered entry is consumed exactly
// once: it is removed before any error can surface, so a duplicate
// request for the same URL is pass-through rather than an endless retry.
func (c *Coordinator) HandleCaption(ctx context.Context, url string, body []byte) ([]byte, error) {
	rewrite, ok := c.registry.Peek(url)
	if !ok {
		return body, nil
	}
	c.registry.Remove(url)

	adjusted, err := c.reconciler.Apply(ctx, rewrite, string(body))
	if err != nil {
		metrics.RewritesTotal.WithLabelValues(metrics.StatusError).Inc()
		return nil, err
	}

	if adjusted == string(body) {
		metrics.RewritesTotal.WithLabelValues(metrics.StatusPassthrough).Inc()
	} else {
		metrics.RewritesTotal.WithLabelValues(metrics.StatusAdjusted).Inc()
	}
	return []byte(adjusted), nil
}

// HasPending reports whether a rewrite is registered for the URL, without
// touching registration order.
func (c *Coordinator) HasPending(url string) bool {
	return c.registry.Contains(url)
}

// PendingCount reports how many rewrites are currently registered.
func (c *Coordinator) PendingCount() int {
	return c.registry.Len()
}

// fetchOwnDubCaption samples the descriptor's current dub-language
// caption for the replacement decision. A missing track resolves to
// absence rather than an error.
func (c *Coordinator) fetchOwnDubCaption(ctx context.Context, descriptor *models.MediaDescriptor, dubLang string, header http.Header) (models.CaptionText, error) {
	asset, ok := descriptor.Subtitles[dubLang]
	if !ok || asset.URL == "" {
		return models.CaptionText{}, nil
	}
	text, err := c.platform.FetchCaption(ctx, asset.URL, header)
	if err != nil {
		return models.CaptionText{}, err
	}
	return models.CaptionText{Body: text, Present: true}, nil
}

// captionPromise launches a caption fetch for the given language, or an
// already-resolved absence when the map has no such track.
func (c *Coordinator) captionPromise(ctx context.Context, subtitles map[string]models.CaptionAsset, lang string, header http.Header) *async.Promise[models.CaptionText] {
	asset, ok := subtitles[lang]
	if !ok || asset.URL == "" {
		return async.Resolved(models.CaptionText{}, nil)
	}
	return async.Go(func() (models.CaptionText, error) {
		text, err := c.platform.FetchCaption(ctx, asset.URL, header)
		if err != nil {
			return models.CaptionText{}, err
		}
		return models.CaptionText{Body: text, Present: true}, nil
	})
}
