// Package timing parses and renders ASS script timestamps and applies
// uniform millisecond offsets to whole scripts.
package timing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/crsod/crsod/internal/apperrors"
)

// FormatHeader is the header token that marks a script as adjustable.
// Scripts without it are forwarded untouched.
const FormatHeader = "Format: Layer,Start,End,"

const (
	msPerCenti  = 10
	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
)

// ParseTime converts an `H:MM:SS.CC` timestamp into milliseconds.
// Hours carry no width restriction; minutes, seconds and centiseconds are
// two digits. Input is expected to be well formed; a missing colon or
// period structure yields an ErrFormat.
func ParseTime(text string) (int64, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 3 {
		return 0, apperrors.NewFormatError("H:MM:SS.CC")
	}
	secParts := strings.Split(parts[2], ".")
	if len(secParts) != 2 {
		return 0, apperrors.NewFormatError("H:MM:SS.CC")
	}

	hours, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, apperrors.NewFormatError("H:MM:SS.CC")
	}
	minutes, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, apperrors.NewFormatError("H:MM:SS.CC")
	}
	seconds, err := strconv.ParseInt(secParts[0], 10, 64)
	if err != nil {
		return 0, apperrors.NewFormatError("H:MM:SS.CC")
	}
	centis, err := strconv.ParseInt(secParts[1], 10, 64)
	if err != nil {
		return 0, apperrors.NewFormatError("H:MM:SS.CC")
	}

	return hours*msPerHour + minutes*msPerMinute + seconds*msPerSecond + centis*msPerCenti, nil
}

// RenderTime converts milliseconds back into `H:MM:SS.CC`.
// Precondition: ms must be non-negative; a negative computed time is a
// caller error. Sub-centisecond precision is truncated.
func RenderTime(ms int64) string {
	hours := ms / msPerHour
	ms -= hours * msPerHour
	minutes := ms / msPerMinute
	ms -= minutes * msPerMinute
	seconds := ms / msPerSecond
	ms -= seconds * msPerSecond
	centis := ms / msPerCenti

	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, seconds, centis)
}

// AdjustScript shifts the start and end timestamps of every Dialogue line
// in an ASS script by offsetMs. Lines are separated by CRLF pairs; only
// the two time fields are touched, so commas inside free-text dialogue
// fields are never at risk. A script without the expected format header is
// returned unmodified together with an ErrFormat so the caller can log
// the mismatch and pass the body through.
func AdjustScript(script string, offsetMs int64) (string, error) {
	if !strings.Contains(script, FormatHeader) {
		return script, apperrors.NewFormatError(FormatHeader)
	}

	lines := strings.Split(script, "\r\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, "Dialogue:") {
			continue
		}
		adjusted, err := adjustDialogueLine(line, offsetMs)
		if err != nil {
			return script, err
		}
		lines[i] = adjusted
	}

	return strings.Join(lines, "\r\n"), nil
}

// adjustDialogueLine rewrites fields 2 and 3 (start, end) of a single
// Dialogue line. Splitting with a limit of 4 leaves the remainder intact.
func adjustDialogueLine(line string, offsetMs int64) (string, error) {
	fields := strings.SplitN(line, ",", 4)
	if len(fields) != 4 {
		return "", apperrors.NewFormatError("Dialogue: <layer>,<start>,<end>,...")
	}

	start, err := ParseTime(fields[1])
	if err != nil {
		return "", err
	}
	end, err := ParseTime(fields[2])
	if err != nil {
		return "", err
	}

	fields[1] = RenderTime(start + offsetMs)
	fields[2] = RenderTime(end + offsetMs)

	return strings.Join(fields, ","), nil
}
