package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/storyreel/storyreel/internal/logging"
)

const maxStderrBytes = 4 * 1024

// Prober extracts playback metadata from a media locator.
type Prober interface {
	Probe(ctx context.Context, locator string) (*ProbeResult, error)
}

// ProbeResult is what a successful probe reports. Zero values mean unknown.
type ProbeResult struct {
	Duration float64
	Width    int
	Height   int
}

// ProbeError is the ProbeFailure surfaced when metadata extraction fails.
type ProbeError struct {
	Locator    string
	StderrTail string
	Err        error
}

func (e *ProbeError) Error() string {
	msg := fmt.Sprintf("probe %s: %v", logging.SanitizeURL(e.Locator), e.Err)
	if e.StderrTail != "" {
		msg += ": " + truncate(e.StderrTail, 256)
	}
	return msg
}

func (e *ProbeError) Unwrap() error { return e.Err }

// FFprobe runs the ffprobe binary and parses its JSON report.
type FFprobe struct {
	path   string
	logger *slog.Logger
}

func NewFFprobe(path string, logger *slog.Logger) *FFprobe {
	if path == "" {
		path = "ffprobe"
	}
	return &FFprobe{path: path, logger: logging.OrDiscard(logger)}
}

// Available reports whether the ffprobe binary can be found.
func (f *FFprobe) Available() bool {
	_, err := exec.LookPath(f.path)
	return err == nil
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (f *FFprobe) Probe(ctx context.Context, locator string) (*ProbeResult, error) {
	target := strings.TrimPrefix(locator, "file://")
	start := time.Now()

	cmd := exec.CommandContext(ctx, f.path,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		target,
	)

	var stdout, stderrBuf bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &ProbeError{Locator: locator, StderrTail: stderrBuf.String(), Err: err}
	}

	res, err := parseFFprobe(stdout.Bytes())
	if err != nil {
		return nil, &ProbeError{Locator: locator, Err: err}
	}

	f.logger.Debug("ffprobe complete",
		"locator", logging.SanitizeURL(locator),
		"duration_s", res.Duration,
		"width", res.Width,
		"height", res.Height,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func parseFFprobe(data []byte) (*ProbeResult, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}

	res := &ProbeResult{}
	res.Duration = parseSeconds(out.Format.Duration)

	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		if res.Width == 0 && s.Width > 0 && s.Height > 0 {
			res.Width, res.Height = s.Width, s.Height
		}
		if res.Duration == 0 {
			res.Duration = parseSeconds(s.Duration)
		}
	}
	if res.Duration == 0 {
		for _, s := range out.Streams {
			if d := parseSeconds(s.Duration); d > 0 {
				res.Duration = d
				break
			}
		}
	}

	if res.Duration == 0 && res.Width == 0 {
		return nil, errors.New("ffprobe reported neither duration nor dimensions")
	}
	return res, nil
}

func parseSeconds(s string) float64 {
	if s == "" || s == "N/A" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := make([]byte, lw.limit)
		copy(tail, b[len(b)-lw.limit:])
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
