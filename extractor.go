package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Extractor produces an encoded audio file on disk for a source URL,
// emitting human-readable progress messages along the way. Implementations
// may fail transiently; retries are the worker's concern.
type Extractor interface {
	Extract(ctx context.Context, sourceURL string, attempt extractionAttempt, bitrateKbps int, outputBase string, onProgress func(string)) error
}

// ytdlpExtractor drives yt-dlp with ffmpeg audio post-processing.
type ytdlpExtractor struct {
	logger *slog.Logger
}

func newYTDLPExtractor(logger *slog.Logger) *ytdlpExtractor {
	return &ytdlpExtractor{logger: logger}
}

func (e *ytdlpExtractor) Extract(ctx context.Context, sourceURL string, attempt extractionAttempt, bitrateKbps int, outputBase string, onProgress func(string)) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	args := []string{
		"-f", attempt.Format,
		"-x", "--audio-format", "mp3",
		"--audio-quality", fmt.Sprintf("%dk", bitrateKbps),
		"--postprocessor-args", fmt.Sprintf("ffmpeg:-ar 44100 -ac 2 -b:a %dk", bitrateKbps),
		"--extractor-args", "youtube:player_client=" + strings.Join(attempt.PlayerClients, ","),
		"--user-agent", randomUserAgent(),
		"--retries", "5",
		"--fragment-retries", "5",
		"--socket-timeout", "10",
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"-o", outputBase + ".%(ext)s",
		sourceURL,
	}
	cmd := exec.CommandContext(ctx, "yt-dlp", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("yt-dlp stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start yt-dlp: %w", err)
	}

	scanErr := scanProgress(stdout, onProgress)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("yt-dlp: %v | %s", err, strings.TrimSpace(stderr.String()))
	}
	if scanErr != nil {
		return fmt.Errorf("yt-dlp output read: %w", scanErr)
	}
	return nil
}

// scanProgress maps yt-dlp's line output to user-facing progress messages.
func scanProgress(r io.Reader, onProgress func(string)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "[download]"):
			msg := strings.TrimSpace(strings.TrimPrefix(line, "[download]"))
			if msg != "" && onProgress != nil {
				onProgress("Downloading: " + msg)
			}
		case strings.HasPrefix(line, "[ExtractAudio]"):
			if onProgress != nil {
				onProgress("Converting to MP3...")
			}
		}
	}
	return scanner.Err()
}
