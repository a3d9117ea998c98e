package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AudioDownloadTimeout is the §5 deadline for the AudioDownloader subprocess.
const AudioDownloadTimeout = 120 * time.Second

// TranscribeTimeout is the §5 deadline for the Transcriber HTTP call.
const TranscribeTimeout = 180 * time.Second

// AudioDownloader shells out to an external downloader binary (e.g. a
// yt-dlp-style tool) to pull the audio track of a YouTube/media URL to a
// scoped temp file. Feature-gated; the temp file is released on every
// exit path, including cancellation (§8 property 7, §9 "Resource
// ownership of temp files").
type AudioDownloader struct {
	binary  string
	enabled bool
}

func NewAudioDownloader(binary string, enabled bool) *AudioDownloader {
	return &AudioDownloader{binary: binary, enabled: enabled}
}

func (a *AudioDownloader) Name() string { return "AudioDownloader" }

// Download acquires a temp audio file for href and returns its path. The
// caller owns release via the returned cleanup func, which must run on
// every exit path including context cancellation.
func (a *AudioDownloader) Download(ctx context.Context, href string) (path string, cleanup func(), err error) {
	if !a.enabled {
		return "", func() {}, fmt.Errorf("audio download disabled")
	}
	if a.binary == "" {
		return "", func() {}, fmt.Errorf("no audio downloader binary configured")
	}

	dlCtx, cancel := context.WithTimeout(ctx, AudioDownloadTimeout)
	defer cancel()

	dest := filepath.Join(os.TempDir(), fmt.Sprintf("auditor-audio-%s.m4a", uuid.New().String()))
	cleanup = func() {
		if rmErr := os.Remove(dest); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn().Err(rmErr).Str("path", dest).Msg("failed to remove temp audio file")
		}
	}

	cmd := exec.CommandContext(dlCtx, a.binary, "-f", "bestaudio", "-o", dest, href)
	if err := cmd.Run(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("audio download failed: %w", err)
	}

	if _, statErr := os.Stat(dest); statErr != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("audio download produced no file: %w", statErr)
	}

	return dest, cleanup, nil
}
