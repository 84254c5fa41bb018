package dialogue

import (
	"testing"

	"github.com/crsod/crsod/internal/testutil"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "Hello world", "Helloworld"},
		{"override blocks and punctuation", `{\i1}Hello{\i0}, world!`, "Helloworld"},
		{"escaped newline", `First\Nsecond`, "Firstsecond"},
		{"case preserved", "ABCdef", "ABCdef"},
		{"digits kept", "Room 101!", "Room101"},
		{"non-ascii dropped", "café naïve", "cafnave"},
		{"unterminated block", "{\\pos(1,2) trailing", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractLines(t *testing.T) {
	t.Parallel()

	script := testutil.NewScript().
		Dialogue(5000, 7000, `{\i1}Hello{\i0}, world!`).
		RawLine("Comment: 0,0:00:09.00,0:00:10.00,Default,,0,0,0,,ignored").
		Dialogue(12000, 14000, "Second line, with commas, inside").
		String()

	lines := ExtractLines(script)
	if len(lines) != 2 {
		t.Fatalf("ExtractLines returned %d lines, want 2", len(lines))
	}
	if lines[0].Normalized != "Helloworld" {
		t.Errorf("first normalized = %q, want %q", lines[0].Normalized, "Helloworld")
	}
	if lines[0].StartMs != 5000 {
		t.Errorf("first start = %d, want 5000", lines[0].StartMs)
	}
	if lines[1].Normalized != "Secondlinewithcommasinside" {
		t.Errorf("second normalized = %q, want %q", lines[1].Normalized, "Secondlinewithcommasinside")
	}
	if lines[1].StartMs != 12000 {
		t.Errorf("second start = %d, want 12000", lines[1].StartMs)
	}
}

// Tie-break is strictly positional: the earliest qualifying line of A
// wins, paired with the earliest match in B, never a later pairing.
func TestFindMatchingPairTieBreak(t *testing.T) {
	t.Parallel()

	scriptA := testutil.NewScript().
		Dialogue(1000, 2000, "Huh?"). // too short to anchor
		Dialogue(3000, 4000, "Repeated anchor line").
		Dialogue(9000, 10000, "Repeated anchor line").
		String()
	scriptB := testutil.NewScript().
		Dialogue(500, 1500, "Something else entirely").
		Dialogue(2000, 3000, "Repeated anchor line").
		Dialogue(8000, 9000, "Repeated anchor line").
		String()

	a, b, ok := FindMatchingPair(scriptA, scriptB, DefaultMinMatchLength)
	if !ok {
		t.Fatal("expected a matching pair")
	}
	if a.StartMs != 3000 {
		t.Errorf("line of A starts at %d, want 3000 (earliest qualifying)", a.StartMs)
	}
	if b.StartMs != 2000 {
		t.Errorf("line of B starts at %d, want 2000 (earliest match)", b.StartMs)
	}
}

func TestEstimateOffset(t *testing.T) {
	t.Parallel()

	t.Run("positive drift", func(t *testing.T) {
		t.Parallel()
		a := testutil.NewScript().Dialogue(10000, 12000, "A perfectly good anchor").String()
		b := testutil.NewScript().Dialogue(4000, 6000, "A perfectly good anchor").String()
		offset, ok := EstimateOffset(a, b, DefaultMinMatchLength)
		if !ok {
			t.Fatal("expected an offset")
		}
		if offset != 6000 {
			t.Errorf("offset = %d, want 6000", offset)
		}
	})

	// A zero offset is a real measurement, distinct from no match.
	t.Run("zero drift is present", func(t *testing.T) {
		t.Parallel()
		a := testutil.NewScript().Dialogue(4000, 6000, "A perfectly good anchor").String()
		b := testutil.NewScript().Dialogue(4000, 6000, "A perfectly good anchor").String()
		offset, ok := EstimateOffset(a, b, DefaultMinMatchLength)
		if !ok {
			t.Fatal("expected an offset")
		}
		if offset != 0 {
			t.Errorf("offset = %d, want 0", offset)
		}
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()
		a := testutil.NewScript().Dialogue(4000, 6000, "Completely different words").String()
		b := testutil.NewScript().Dialogue(4000, 6000, "Nothing in common here").String()
		if _, ok := EstimateOffset(a, b, DefaultMinMatchLength); ok {
			t.Error("expected no offset for unrelated scripts")
		}
	})

	t.Run("short lines never anchor", func(t *testing.T) {
		t.Parallel()
		a := testutil.NewScript().Dialogue(4000, 6000, "Yes!").String()
		b := testutil.NewScript().Dialogue(9000, 11000, "Yes!").String()
		if _, ok := EstimateOffset(a, b, DefaultMinMatchLength); ok {
			t.Error("expected no offset from a line below the minimum length")
		}
	})
}
