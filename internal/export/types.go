package export

// Request asks for an EDL of the current timeline. With OutputDir set the
// EDL is written to <dir>/<title>.edl, otherwise it is returned inline.
type Request struct {
	Title     string   `json:"title"`
	FrameRate float64  `json:"frame_rate"`
	OutputDir string   `json:"output_dir,omitempty"`
	TrackIDs  []string `json:"track_ids,omitempty"`
}

// Event is one EDL line: a clip placed at a record position.
type Event struct {
	ClipID    string
	TrackID   string
	Name      string
	MediaPath string

	// Channel is "V" for video tracks and "A" for audio tracks.
	Channel string

	SourceIn  float64
	SourceOut float64
	RecordIn  float64
	RecordOut float64
	Speed     float64

	// Dissolve is the cross-dissolve length into this event in seconds. Zero is a cut.
	Dissolve float64

	// Effect names a non-dissolve transition, kept as a comment.
	Effect string
}

type Response struct {
	Status     string   `json:"status"`
	Format     string   `json:"format"`
	OutputPath string   `json:"output_path,omitempty"`
	EventCount int      `json:"event_count"`
	Skipped    []string `json:"skipped_clips"`
	EDL        string   `json:"edl,omitempty"`
}
