package utils

import (
	"testing"
	"time"
)

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"42", 0, 42},
		{"", 10, 10},
		{"x", 5, 5},
		{"-7", 0, -7},
		{"4.2", 1, 1},
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.in, tc.def); got != tc.want {
			t.Errorf("AtoiDefault(%q, %d) = %d, want %d", tc.in, tc.def, got, tc.want)
		}
	}
}

func TestParseMillis_EmptyAndZeroMeanNoBound(t *testing.T) {
	for _, in := range []string{"", "0"} {
		got, err := ParseMillis(in)
		if err != nil {
			t.Fatalf("ParseMillis(%q): %v", in, err)
		}
		if !got.IsZero() {
			t.Fatalf("ParseMillis(%q) = %v, want zero time", in, got)
		}
	}
}

func TestParseMillis_RoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	got, err := ParseMillis("1748781000000")
	if err != nil {
		t.Fatalf("ParseMillis: %v", err)
	}
	if !got.Equal(at) {
		t.Fatalf("ParseMillis = %v, want %v", got, at)
	}
}

func TestParseMillis_RejectsBadInput(t *testing.T) {
	for _, in := range []string{"-1", "yesterday", "1.5"} {
		if _, err := ParseMillis(in); err == nil {
			t.Errorf("ParseMillis(%q) accepted", in)
		}
	}
}
