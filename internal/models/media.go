package models

import (
	"encoding/json"
	"sort"

	"github.com/crsod/crsod/internal/apperrors"
)

// FormatASS is the caption format tag that participates in timing
// reconciliation. Assets in any other format are copied verbatim.
const FormatASS = "ass"

// CaptionAsset is one fetchable caption track. Immutable once fetched.
type CaptionAsset struct {
	Language string `json:"language"`
	URL      string `json:"url"`
	Format   string `json:"format"`
}

// Adjustable reports whether the asset's format supports timestamp rewriting.
func (a CaptionAsset) Adjustable() bool {
	return a.Format == FormatASS
}

// VersionRef points at one language-version of the same media item.
type VersionRef struct {
	AudioLocale string `json:"audio_locale"`
	GUID        string `json:"guid"`
}

// MediaDescriptor is the parsed shape of a metadata response. It is
// constructed fresh from each payload, mutated only by inserting or
// replacing caption assets, and discarded once the response is forwarded.
// Fields of the payload outside the ones the core touches are retained
// verbatim so the forwarded body stays faithful to the platform's answer.
type MediaDescriptor struct {
	AudioLocale string
	Versions    []VersionRef
	Subtitles   map[string]CaptionAsset

	extra map[string]json.RawMessage
}

// ParseMediaDescriptor decodes a metadata response body, validating the
// structural fields the core depends on. A body that is not a JSON object
// yields an ErrFormat; a missing audioLocale or versions field yields an
// ErrLookup, the platform-contract violation of the error taxonomy.
func ParseMediaDescriptor(body []byte) (*MediaDescriptor, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperrors.NewFormatError("JSON object")
	}

	d := &MediaDescriptor{
		Subtitles: make(map[string]CaptionAsset),
		extra:     raw,
	}

	localeRaw, ok := raw["audioLocale"]
	if !ok {
		return nil, apperrors.NewLookupError("audioLocale", "metadata response")
	}
	if err := json.Unmarshal(localeRaw, &d.AudioLocale); err != nil {
		return nil, apperrors.NewFormatError("audioLocale string")
	}

	versionsRaw, ok := raw["versions"]
	if !ok {
		return nil, apperrors.NewLookupError("versions", "metadata response")
	}
	if err := json.Unmarshal(versionsRaw, &d.Versions); err != nil {
		return nil, apperrors.NewFormatError("versions array")
	}

	if subsRaw, ok := raw["subtitles"]; ok {
		if err := json.Unmarshal(subsRaw, &d.Subtitles); err != nil {
			return nil, apperrors.NewFormatError("subtitles map")
		}
	}

	return d, nil
}

// MarshalBody serializes the descriptor back into the wire shape,
// carrying every untouched payload field through unchanged.
func (d *MediaDescriptor) MarshalBody() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.extra)+3)
	for k, v := range d.extra {
		out[k] = v
	}

	localeRaw, err := json.Marshal(d.AudioLocale)
	if err != nil {
		return nil, err
	}
	out["audioLocale"] = localeRaw

	versionsRaw, err := json.Marshal(d.Versions)
	if err != nil {
		return nil, err
	}
	out["versions"] = versionsRaw

	subsRaw, err := json.Marshal(d.Subtitles)
	if err != nil {
		return nil, err
	}
	out["subtitles"] = subsRaw

	return json.Marshal(out)
}

// SubtitleLanguages returns the caption languages in sorted order.
// Useful for deterministic iteration and logging.
func (d *MediaDescriptor) SubtitleLanguages() []string {
	langs := make([]string, 0, len(d.Subtitles))
	for lang := range d.Subtitles {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// SnapshotSubtitles returns a frozen copy of the caption-asset map as it
// stands now. Pending rewrites hold snapshots so later mutation of the
// descriptor cannot change what a rewrite sees.
func (d *MediaDescriptor) SnapshotSubtitles() map[string]CaptionAsset {
	snap := make(map[string]CaptionAsset, len(d.Subtitles))
	for lang, asset := range d.Subtitles {
		snap[lang] = asset
	}
	return snap
}

// CaptionText is the outcome of a caption-text fetch that may legitimately
// find nothing: a media item with no caption track in the wanted language
// resolves to Present == false rather than an error.
type CaptionText struct {
	Body    string
	Present bool
}
