package resource

import "testing"

func TestSplitNumbered(t *testing.T) {
	tests := []struct {
		in       string
		wantLeft string
		wantN    int64
		wantOK   bool
	}{
		{"Clip (2)", "Clip", 2, true},
		{"(4)", "", 4, true},
		{"Clip", "", 0, false},
		{"Clip(2)", "", 0, false},
		{"Clip (x)", "", 0, false},
		{"Clip (2) tail", "", 0, false},
		{"a (b) (10)", "a (b)", 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			left, n, ok := SplitNumbered(tt.in)
			if left != tt.wantLeft || n != tt.wantN || ok != tt.wantOK {
				t.Errorf("SplitNumbered(%q) = (%q, %d, %v), want (%q, %d, %v)",
					tt.in, left, n, ok, tt.wantLeft, tt.wantN, tt.wantOK)
			}
		})
	}
}

func TestIncrementName(t *testing.T) {
	taken := func(names ...string) func(string) bool {
		set := make(map[string]bool, len(names))
		for _, n := range names {
			set[n] = true
		}
		return func(s string) bool { return !set[s] }
	}

	tests := []struct {
		name   string
		input  string
		accept func(string) bool
		want   string
		wantOK bool
	}{
		{"free", "Clip", taken(), "Clip", true},
		{"first increment", "Clip", taken("Clip"), "Clip (1)", true},
		{"skips used", "Clip", taken("Clip", "Clip (1)"), "Clip (2)", true},
		{"continues from suffix", "Clip (5)", taken("Clip (5)"), "Clip (6)", true},
		{"zero suffix restarts at one", "Clip (0)", taken("Clip (0)"), "Clip (1)", true},
		{"empty input", "", taken(), "", false},
		{"exhausted", "x", func(string) bool { return false }, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IncrementName(tt.accept, tt.input, 100)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("IncrementName(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFileDisplayName(t *testing.T) {
	accept := func(s string) bool { return s != "a.png" }
	got, ok := FileDisplayName(accept, "/tmp/x/a.png")
	if !ok || got != "a.png (1)" {
		t.Errorf("FileDisplayName() = %q, %v", got, ok)
	}
}
