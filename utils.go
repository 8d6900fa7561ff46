package main

import (
	"math/rand"
	"net/url"
	"strconv"
	"strings"
)

const maxTitleLength = 100

// sanitizeFilename strips filesystem-hostile characters from a title and
// bounds its length. The canonical media id is appended elsewhere to keep
// names unique under title collisions.
func sanitizeFilename(title string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '\\', '/', '*', '?', ':', '"', '<', '>', '|':
			return -1
		}
		return r
	}, title)
	sanitized = strings.TrimSpace(sanitized)
	// Bound by characters, not bytes, so multi-byte titles are never cut
	// mid-rune.
	if runes := []rune(sanitized); len(runes) > maxTitleLength {
		sanitized = string(runes[:maxTitleLength])
	}
	return sanitized
}

// videoID extracts the canonical media id from a YouTube URL. Returns ""
// when no id can be derived.
func videoID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "youtu.be":
		return strings.Trim(u.Path, "/")
	case strings.HasSuffix(host, "youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		// Shorts and embed URLs carry the id as the last path segment.
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) >= 2 && (parts[0] == "shorts" || parts[0] == "embed") {
			return parts[len(parts)-1]
		}
	}
	return ""
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36 Edg/125.0.0.0",
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// parseISODuration converts an ISO 8601 duration such as PT4M13S into
// seconds. The Data API reports durations in this form.
func parseISODuration(s string) float64 {
	s = strings.TrimPrefix(s, "P")
	var total float64
	var num strings.Builder
	inTime := false
	for _, r := range s {
		switch {
		case r == 'T':
			inTime = true
		case r >= '0' && r <= '9':
			num.WriteRune(r)
		default:
			n, err := strconv.ParseFloat(num.String(), 64)
			num.Reset()
			if err != nil {
				continue
			}
			switch r {
			case 'D':
				total += n * 86400
			case 'H':
				total += n * 3600
			case 'M':
				if inTime {
					total += n * 60
				} else {
					total += n * 86400 * 30
				}
			case 'S':
				total += n
			}
		}
	}
	return total
}
