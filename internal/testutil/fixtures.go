// Package testutil provides fixture builders shared by the package tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/crsod/crsod/internal/models"
	"github.com/crsod/crsod/internal/timing"
)

// NewGUID mints a fresh opaque media identifier.
func NewGUID() string {
	return uuid.NewString()
}

// ScriptBuilder assembles a minimal but well-formed ASS script with
// CRLF-separated lines, the adjustable format header, and Dialogue lines
// carrying the standard nine header fields.
type ScriptBuilder struct {
	lines []string
}

// NewScript starts a script with the standard events header.
func NewScript() *ScriptBuilder {
	return &ScriptBuilder{lines: []string{
		"[Events]",
		"Format: Layer,Start,End,Style,Name,MarginL,MarginR,MarginV,Effect,Text",
	}}
}

// Dialogue appends a dialogue event from millisecond start/end times.
func (b *ScriptBuilder) Dialogue(startMs, endMs int64, text string) *ScriptBuilder {
	b.lines = append(b.lines, fmt.Sprintf(
		"Dialogue: 0,%s,%s,Default,,0,0,0,,%s",
		timing.RenderTime(startMs), timing.RenderTime(endMs), text))
	return b
}

// RawLine appends an arbitrary line, for comments and style sections.
func (b *ScriptBuilder) RawLine(line string) *ScriptBuilder {
	b.lines = append(b.lines, line)
	return b
}

// String renders the script with CRLF separators.
func (b *ScriptBuilder) String() string {
	return strings.Join(b.lines, "\r\n")
}

// MetadataDocument is the raw wire shape of a metadata response,
// convenient to build per test and marshal into an intercepted body.
type MetadataDocument struct {
	AudioLocale string                         `json:"audioLocale"`
	Versions    []models.VersionRef            `json:"versions"`
	Subtitles   map[string]models.CaptionAsset `json:"subtitles"`
	Extra       map[string]any                 `json:"-"`
}

// Body marshals the document, folding in any Extra fields.
func (d MetadataDocument) Body() []byte {
	out := map[string]any{
		"audioLocale": d.AudioLocale,
		"versions":    d.Versions,
		"subtitles":   d.Subtitles,
	}
	for k, v := range d.Extra {
		out[k] = v
	}
	body, err := json.Marshal(out)
	if err != nil {
		panic(err)
	}
	return body
}

// CaptionAsset builds an ASS-format caption asset for a language.
func CaptionAsset(lang, url string) models.CaptionAsset {
	return models.CaptionAsset{Language: lang, URL: url, Format: models.FormatASS}
}
