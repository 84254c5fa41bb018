// Package policy holds the caption-substitution decision logic: which
// version GUIDs are involved, whether a dub caption needs replacing, and
// how two caption maps reconcile.
package policy

import (
	"sort"

	"github.com/crsod/crsod/internal/apperrors"
	"github.com/crsod/crsod/internal/models"
)

// DefaultEmptyScriptThreshold is the caption byte length at or below
// which a present script is treated as functionally absent. Dubbed
// episodes often ship a stub caption carrying only signage and credits;
// those are useless as dialogue captions and get replaced.
const DefaultEmptyScriptThreshold = 7500

// ResolveSelfGUID returns the GUID of the version reference whose audio
// locale equals the descriptor's own. The platform always lists the
// descriptor itself among its versions; absence is a contract violation.
func ResolveSelfGUID(d *models.MediaDescriptor) (string, error) {
	for _, v := range d.Versions {
		if v.AudioLocale == d.AudioLocale {
			return v.GUID, nil
		}
	}
	return "", apperrors.NewLookupError("self version", "versions of "+d.AudioLocale+" descriptor")
}

// ResolveAltGUID returns the GUID of the version reference carrying the
// configured alternate (original-audio) language.
func ResolveAltGUID(d *models.MediaDescriptor, altLanguage string) (string, error) {
	for _, v := range d.Versions {
		if v.AudioLocale == altLanguage {
			return v.GUID, nil
		}
	}
	return "", apperrors.NewLookupError("version with audio locale "+altLanguage, "versions")
}

// ShouldReplaceDubCaption decides whether the current-language caption
// track must be substituted. An absent caption always needs replacing.
// A present one is replaced only when its length sits at or below the
// threshold, treating very short scripts as functionally absent.
// The bound is inclusive: a script of exactly threshold bytes is replaced.
func ShouldReplaceDubCaption(candidate models.CaptionText, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultEmptyScriptThreshold
	}
	if !candidate.Present {
		return true
	}
	return len(candidate.Body) <= threshold
}

// ReconcileCaptionMap copies entries of altMap into ownMap when either
// the language is the dub language and replaceDub is set, or the language
// is entirely absent from ownMap. Everything else in ownMap is left
// untouched. The returned language list records what actually changed,
// sorted and deduplicated; it exists for observability only.
func ReconcileCaptionMap(ownMap, altMap map[string]models.CaptionAsset, dubLang string, replaceDub bool) []string {
	changedSet := make(map[string]struct{})
	for lang, asset := range altMap {
		replace := lang == dubLang && replaceDub
		_, exists := ownMap[lang]
		if !replace && exists {
			continue
		}
		ownMap[lang] = asset
		changedSet[lang] = struct{}{}
	}

	changed := make([]string, 0, len(changedSet))
	for lang := range changedSet {
		changed = append(changed, lang)
	}
	sort.Strings(changed)
	return changed
}
