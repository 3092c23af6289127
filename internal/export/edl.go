package export

import (
	"fmt"
	"math"
	"strings"
)

const (
	defaultFrameRate = 30.0
	reelName         = "AX"
)

// GenerateEDL renders events as a CMX3600 edit decision list. Record
// timecodes are the clips' timeline positions; cross-dissolves become
// D events with their length in frames.
func GenerateEDL(events []Event, title string, frameRate float64) string {
	if frameRate <= 0 {
		frameRate = defaultFrameRate
	}
	fps := int(math.Round(frameRate))

	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\n", title)
	if isDropFrame(frameRate) {
		b.WriteString("FCM: DROP FRAME\n")
	} else {
		b.WriteString("FCM: NON-DROP FRAME\n")
	}
	b.WriteString("\n")

	for i, ev := range events {
		srcIn := toTimecode(ev.SourceIn, fps)
		fmt.Fprintf(&b, "%03d  %-8s %-5s %-8s %s %s %s %s\n",
			i+1, reelName, ev.Channel, transitionField(ev.Dissolve, fps),
			srcIn, toTimecode(ev.SourceOut, fps),
			toTimecode(ev.RecordIn, fps), toTimecode(ev.RecordOut, fps))

		if ev.Speed > 0 && math.Abs(ev.Speed-1) > 1e-6 {
			fmt.Fprintf(&b, "M2   %-8s %05.1f    %s\n", reelName, frameRate*ev.Speed, srcIn)
		}
		fmt.Fprintf(&b, "* FROM CLIP NAME:  %s\n", ev.Name)
		fmt.Fprintf(&b, "* MEDIA PATH:  %s\n", strings.TrimPrefix(ev.MediaPath, "file://"))
		if ev.Effect != "" {
			fmt.Fprintf(&b, "* EFFECT NAME:  %s\n", strings.ToUpper(ev.Effect))
		}
	}

	b.WriteString("\n")
	return b.String()
}

func transitionField(dissolve float64, fps int) string {
	frames := int(math.Round(dissolve * float64(fps)))
	if frames <= 0 {
		return "C"
	}
	return fmt.Sprintf("D    %03d", frames)
}

func isDropFrame(frameRate float64) bool {
	return math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01
}

// toTimecode formats seconds as HH:MM:SS:FF at an integer frame rate.
func toTimecode(seconds float64, fps int) string {
	if seconds < 0 {
		seconds = 0
	}
	totalFrames := int(math.Round(seconds * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d",
		totalSeconds/3600, (totalSeconds/60)%60, totalSeconds%60, frames)
}
