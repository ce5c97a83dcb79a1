package logger

import "testing"

func TestSampleGateWindow(t *testing.T) {
	g := newSampleGate(2, 5)
	var passed int
	for i := 0; i < 10; i++ {
		if g.Allow() {
			passed++
		}
	}
	if passed != 4 {
		t.Fatalf("expected 4 of 10 to pass, got %d", passed)
	}
}

func TestSampleGateDisabledPassesAll(t *testing.T) {
	g := newSampleGate(0, 0)
	for i := 0; i < 3; i++ {
		if !g.Allow() {
			t.Fatal("disabled gate must pass everything")
		}
	}
}

func TestParseSampleSpec(t *testing.T) {
	cases := []struct {
		spec        string
		pass, cycle int
	}{
		{"1/50", 1, 50},
		{" 2 / 10 ", 2, 10},
		{"25", 1, 25},
		{"", 0, 0},
		{"abc", 0, 0},
		{"x/y", 0, 0},
		{"-3", 0, 0},
	}
	for _, tc := range cases {
		pass, cycle := parseSampleSpec(tc.spec)
		if pass != tc.pass || cycle != tc.cycle {
			t.Fatalf("parseSampleSpec(%q) = (%d, %d), want (%d, %d)",
				tc.spec, pass, cycle, tc.pass, tc.cycle)
		}
	}
}
