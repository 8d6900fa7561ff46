package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "My Song", "My Song"},
		{"hostile characters", `a\b/c*d?e:f"g<h>i|j`, "abcdefghij"},
		{"surrounding whitespace", "  padded title  ", "padded title"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeFilename(tt.title); got != tt.want {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}

	t.Run("bounded length", func(t *testing.T) {
		long := strings.Repeat("x", 300)
		if got := sanitizeFilename(long); len(got) != maxTitleLength {
			t.Errorf("len = %d, want %d", len(got), maxTitleLength)
		}
	})

	t.Run("multibyte titles cut on rune boundary", func(t *testing.T) {
		long := strings.Repeat("日", 300)
		got := sanitizeFilename(long)
		if !utf8.ValidString(got) {
			t.Errorf("truncated title is not valid UTF-8: %q", got)
		}
		if n := utf8.RuneCountInString(got); n != maxTitleLength {
			t.Errorf("rune count = %d, want %d", n, maxTitleLength)
		}
	})
}

func TestVideoID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch url with extra params", "https://www.youtube.com/watch?v=abc123&t=10s", "abc123"},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"shorts", "https://www.youtube.com/shorts/xyz789", "xyz789"},
		{"embed", "https://www.youtube.com/embed/xyz789", "xyz789"},
		{"no id", "https://www.youtube.com/feed/subscriptions", ""},
		{"unrelated host", "https://example.com/watch?v=abc", ""},
		{"garbage", "::::", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := videoID(tt.url); got != tt.want {
				t.Errorf("videoID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"PT4M13S", 253},
		{"PT1H2M3S", 3723},
		{"PT45S", 45},
		{"P1DT1S", 86401},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseISODuration(tt.in); got != tt.want {
			t.Errorf("parseISODuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
