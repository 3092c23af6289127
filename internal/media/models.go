package media

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

func (k Kind) Valid() bool {
	return k == KindVideo || k == KindAudio || k == KindImage
}

type Status string

const (
	StatusGenerating Status = "generating"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

func (s Status) Valid() bool {
	return s == StatusGenerating || s == StatusReady || s == StatusError
}

type AspectRatio string

const (
	Aspect16x9   AspectRatio = "16:9"
	Aspect9x16   AspectRatio = "9:16"
	Aspect1x1    AspectRatio = "1:1"
	AspectCustom AspectRatio = "custom"
)

// aspectTolerance is the absolute distance from a named ratio that still counts as a match.
const aspectTolerance = 0.1

// Item is a generated or imported asset.
type Item struct {
	ID          string      `json:"id"`
	Name        string      `json:"name,omitempty"`
	URL         string      `json:"url"`
	Kind        Kind        `json:"kind"`
	Status      Status      `json:"status"`
	Duration    float64     `json:"duration"`
	Width       int         `json:"width,omitempty"`
	Height      int         `json:"height,omitempty"`
	AspectRatio AspectRatio `json:"aspect_ratio"`
	// Local marks items whose bytes live in the catalog's file store.
	// The catalog releases them on removal.
	Local     bool      `json:"local"`
	Probed    bool      `json:"probed"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Resolution returns "WxH", or "" when the dimensions are unknown.
func (i Item) Resolution() string {
	if i.Width <= 0 || i.Height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", i.Width, i.Height)
}

// ClassifyAspect maps pixel dimensions onto the named aspect ratios.
func ClassifyAspect(width, height int) AspectRatio {
	if width <= 0 || height <= 0 {
		return AspectCustom
	}
	r := float64(width) / float64(height)
	switch {
	case math.Abs(r-16.0/9.0) < aspectTolerance:
		return Aspect16x9
	case math.Abs(r-9.0/16.0) < aspectTolerance:
		return Aspect9x16
	case math.Abs(r-1) < aspectTolerance:
		return Aspect1x1
	default:
		return AspectCustom
	}
}

func NewID() string {
	return uuid.NewString()
}

var extensionKinds = map[string]Kind{
	".mp4":  KindVideo,
	".mov":  KindVideo,
	".mkv":  KindVideo,
	".webm": KindVideo,
	".mp3":  KindAudio,
	".wav":  KindAudio,
	".m4a":  KindAudio,
	".aac":  KindAudio,
	".ogg":  KindAudio,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".webp": KindImage,
	".gif":  KindImage,
}

// KindFromFilename guesses the media kind from a file extension.
func KindFromFilename(filename string) (Kind, bool) {
	k, ok := extensionKinds[strings.ToLower(filepath.Ext(filename))]
	return k, ok
}
