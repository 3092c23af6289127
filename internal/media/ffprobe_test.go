package media

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseFFprobe(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		wantDur    float64
		wantWidth  int
		wantHeight int
		wantErr    bool
	}{
		{
			name: "video with format duration",
			json: `{"streams":[{"codec_type":"audio","duration":"9.9"},{"codec_type":"video","width":1920,"height":1080}],
				"format":{"duration":"10.000000"}}`,
			wantDur: 10, wantWidth: 1920, wantHeight: 1080,
		},
		{
			name:    "audio only falls back to stream duration",
			json:    `{"streams":[{"codec_type":"audio","duration":"3.5"}],"format":{"duration":"N/A"}}`,
			wantDur: 3.5,
		},
		{
			name:      "still image",
			json:      `{"streams":[{"codec_type":"video","width":1000,"height":1333}],"format":{}}`,
			wantWidth: 1000, wantHeight: 1333,
		},
		{
			name:    "nothing useful",
			json:    `{"streams":[],"format":{}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			json:    `ffprobe: oops`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parseFFprobe([]byte(tt.json))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseFFprobe() = %+v, want error", res)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFFprobe() error = %v", err)
			}
			if res.Duration != tt.wantDur || res.Width != tt.wantWidth || res.Height != tt.wantHeight {
				t.Errorf("parseFFprobe() = %+v, want %v %dx%d", res, tt.wantDur, tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestLimitedWriter_KeepsTail(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, limit: 8}

	n, err := lw.Write([]byte("0123456789"))
	if err != nil || n != 10 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	lw.Write([]byte("ab"))

	if got := buf.String(); got != "456789ab" {
		t.Errorf("tail = %q, want 456789ab", got)
	}
}

func TestProbeError(t *testing.T) {
	inner := errors.New("exit status 1")
	err := &ProbeError{
		Locator:    "https://user:pw@cdn.example/v.mp4?sig=secret",
		StderrTail: "moov atom not found",
		Err:        inner,
	}
	if !errors.Is(err, inner) {
		t.Error("ProbeError does not unwrap to the cause")
	}
	msg := err.Error()
	if strings.Contains(msg, "secret") || strings.Contains(msg, "pw@") {
		t.Errorf("Error() leaks credentials: %s", msg)
	}
	if !strings.Contains(msg, "moov atom not found") {
		t.Errorf("Error() = %s, want stderr tail", msg)
	}
}
