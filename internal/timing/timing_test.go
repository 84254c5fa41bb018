package timing

import (
	"errors"
	"strings"
	"testing"

	"github.com/crsod/crsod/internal/apperrors"
)

func TestParseTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"zero", "0:00:00.00", 0, false},
		{"one second", "0:00:01.00", 1000, false},
		{"centiseconds", "0:00:00.07", 70, false},
		{"full fields", "1:02:03.04", 3723040, false},
		{"wide hours", "12:59:59.99", 46799990, false},
		{"missing period", "0:00:01", 0, true},
		{"missing colon", "0:01.00", 0, true},
		{"not numeric", "a:bb:cc.dd", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTime(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTime(%q) expected error, got %d", tt.input, got)
				}
				if !errors.Is(err, &apperrors.ErrFormat{}) {
					t.Errorf("ParseTime(%q) error = %v, want ErrFormat", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTime(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseTime(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestRenderTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ms   int64
		want string
	}{
		{"zero", 0, "0:00:00.00"},
		{"truncates sub-centisecond", 1234, "0:00:01.23"},
		{"hour rollover", 3600000, "1:00:00.00"},
		{"wide hours", 36000000, "10:00:00.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := RenderTime(tt.ms); got != tt.want {
				t.Errorf("RenderTime(%d) = %q, want %q", tt.ms, got, tt.want)
			}
		})
	}
}

// Round-trip property: rendering a parsed time yields a string that
// parses back to the same value.
func TestTimeRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{"0:00:00.00", "0:00:01.50", "1:23:45.67", "25:00:30.09"}
	for _, input := range inputs {
		ms, err := ParseTime(input)
		if err != nil {
			t.Fatalf("ParseTime(%q) unexpected error: %v", input, err)
		}
		back, err := ParseTime(RenderTime(ms))
		if err != nil {
			t.Fatalf("ParseTime(RenderTime(%d)) unexpected error: %v", ms, err)
		}
		if back != ms {
			t.Errorf("round trip of %q: got %d, want %d", input, back, ms)
		}
	}
}

const sampleScript = "[Events]\r\n" +
	"Format: Layer,Start,End,Style,Name,MarginL,MarginR,MarginV,Effect,Text\r\n" +
	"Dialogue: 0,0:00:05.00,0:00:07.50,Default,,0,0,0,,Hello there\r\n" +
	"Comment: 0,0:00:05.00,0:00:07.50,Default,,0,0,0,,left alone\r\n" +
	"Dialogue: 0,0:01:00.25,0:01:02.00,Default,,0,0,0,,Commas, stay, put"

func TestAdjustScript(t *testing.T) {
	t.Parallel()

	adjusted, err := AdjustScript(sampleScript, 1500)
	if err != nil {
		t.Fatalf("AdjustScript unexpected error: %v", err)
	}

	if !strings.Contains(adjusted, "Dialogue: 0,0:00:06.50,0:00:09.00,") {
		t.Errorf("first dialogue not shifted by 1500ms:\n%s", adjusted)
	}
	if !strings.Contains(adjusted, "Dialogue: 0,0:01:01.75,0:01:03.50,") {
		t.Errorf("second dialogue not shifted by 1500ms:\n%s", adjusted)
	}
	// Non-Dialogue lines and the free-text field keep their commas untouched.
	if !strings.Contains(adjusted, "Comment: 0,0:00:05.00,0:00:07.50,") {
		t.Errorf("comment line was modified:\n%s", adjusted)
	}
	if !strings.Contains(adjusted, "Commas, stay, put") {
		t.Errorf("free-text commas were modified:\n%s", adjusted)
	}
}

// Offset idempotence under inversion: shifting forward then backward by
// the same amount reproduces the original script exactly.
func TestAdjustScriptInversion(t *testing.T) {
	t.Parallel()

	// Offsets are exercised at centisecond granularity: the rendered
	// format cannot carry sub-centisecond precision.
	for _, k := range []int64{10, 70, 1500, 60000, 3600000} {
		forward, err := AdjustScript(sampleScript, k)
		if err != nil {
			t.Fatalf("forward adjust by %d: %v", k, err)
		}
		back, err := AdjustScript(forward, -k)
		if err != nil {
			t.Fatalf("backward adjust by %d: %v", k, err)
		}
		if back != sampleScript {
			t.Errorf("inversion with k=%d did not reproduce original:\n%s", k, back)
		}
	}
}

func TestAdjustScriptZeroOffset(t *testing.T) {
	t.Parallel()

	adjusted, err := AdjustScript(sampleScript, 0)
	if err != nil {
		t.Fatalf("AdjustScript unexpected error: %v", err)
	}
	if adjusted != sampleScript {
		t.Errorf("zero offset changed the script:\n%s", adjusted)
	}
}

func TestAdjustScriptFormatMismatch(t *testing.T) {
	t.Parallel()

	vtt := "WEBVTT\r\n\r\n00:00:05.000 --> 00:00:07.000\r\nHello"
	got, err := AdjustScript(vtt, 1000)
	if err == nil {
		t.Fatal("expected format error for non-ASS body")
	}
	if !errors.Is(err, &apperrors.ErrFormat{}) {
		t.Errorf("error = %v, want ErrFormat", err)
	}
	if got != vtt {
		t.Errorf("body was modified despite format mismatch:\n%s", got)
	}
}
