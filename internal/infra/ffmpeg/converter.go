package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"telegram-stt-bot/internal/domain"
	"telegram-stt-bot/internal/domain/ports/adapter"
)

// Converter shells out to ffmpeg/ffprobe to normalize audio for a provider.
// It writes a new file next to the input (inside the job's working dir) and
// never mutates the input in place.
type Converter struct {
	ffmpegPath  string
	ffprobePath string
	log         *zerolog.Logger
}

func NewConverter(log *zerolog.Logger) *Converter {
	return &Converter{ffmpegPath: "ffmpeg", ffprobePath: "ffprobe", log: log}
}

var _ adapter.AudioConverter = (*Converter)(nil)

// Available reports whether the ffmpeg binary can be executed. Checked once
// at startup so misconfiguration fails fast instead of per job.
func (c *Converter) Available() bool {
	out, err := exec.Command(c.ffmpegPath, "-version").Output()
	return err == nil && len(out) > 0
}

func (c *Converter) Convert(ctx context.Context, inputPath string, spec adapter.TargetSpec) (string, error) {
	if err := c.probe(ctx, inputPath); err != nil {
		return "", err
	}

	outputPath := filepath.Join(filepath.Dir(inputPath), "converted."+spec.Container)

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-vn", // drop any video stream, audio only
		"-acodec", spec.Codec,
		"-ar", strconv.Itoa(spec.SampleRate),
		"-ac", strconv.Itoa(spec.Channels),
		"-f", spec.Container,
		outputPath,
	}

	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.log.Debug().Str("input", inputPath).Str("codec", spec.Codec).
		Int("sample_rate", spec.SampleRate).Int("channels", spec.Channels).
		Msg("running ffmpeg")

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("ffmpeg: %w", domain.ErrConversionTimeout)
		}
		msg := strings.TrimSpace(stderr.String())
		c.log.Error().Str("input", inputPath).Str("stderr", msg).Msg("ffmpeg failed")
		return "", fmt.Errorf("ffmpeg exit: %s: %w", firstLine(msg), domain.ErrToolFailure)
	}

	st, err := os.Stat(outputPath)
	if err != nil || st.Size() == 0 {
		return "", fmt.Errorf("ffmpeg produced no output: %w", domain.ErrToolFailure)
	}
	return outputPath, nil
}

// probe verifies the input holds a decodable audio stream. An undecodable
// source is the caller's problem, not the tool's, so it maps to
// ErrUnsupportedInput.
func (c *Converter) probe(ctx context.Context, inputPath string) error {
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("ffprobe: %w", domain.ErrConversionTimeout)
		}
		return fmt.Errorf("ffprobe: %w", domain.ErrUnsupportedInput)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return fmt.Errorf("no audio stream: %w", domain.ErrUnsupportedInput)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
