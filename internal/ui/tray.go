package ui

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/storyreel/storyreel/internal/editor"
	"github.com/storyreel/storyreel/internal/logging"
)

//go:embed icon.png
var iconBytes []byte

type Tray struct {
	editor *editor.Editor
	logger *slog.Logger

	statusItem *systray.MenuItem
	mediaItem  *systray.MenuItem
	playItem   *systray.MenuItem
	undoItem   *systray.MenuItem
	redoItem   *systray.MenuItem

	mu          sync.Mutex
	ready       bool
	unsubscribe func()

	apiURL string
	onQuit func()
}

type TrayConfig struct {
	Editor *editor.Editor
	Logger *slog.Logger
	APIURL string
	OnQuit func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		editor: cfg.Editor,
		logger: logging.WithComponent(logging.OrDiscard(cfg.Logger), "tray"),
		apiURL: cfg.APIURL,
		onQuit: cfg.OnQuit,
	}
}

// Run blocks until the tray exits.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Storyreel")
	systray.SetTooltip("Storyreel editor on " + t.apiURL)

	t.mu.Lock()
	t.statusItem = systray.AddMenuItem("Status: Idle", "Current editor status")
	t.statusItem.Disable()
	t.mediaItem = systray.AddMenuItem("Media: 0", "Media library")
	t.mediaItem.Disable()

	systray.AddSeparator()

	t.playItem = systray.AddMenuItem("Play", "Toggle playback")
	t.undoItem = systray.AddMenuItem("Undo", "Undo the last edit")
	t.redoItem = systray.AddMenuItem("Redo", "Redo the last undone edit")
	resetItem := systray.AddMenuItem("New Project", "Clear the timeline and media library")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Storyreel")
	t.ready = true
	t.mu.Unlock()

	t.refresh(t.editor.Snapshot())
	t.unsubscribe = t.editor.Subscribe(func(ev editor.Event) {
		if ev.Snapshot != nil {
			t.refresh(*ev.Snapshot)
		}
	})

	go func() {
		for {
			select {
			case <-t.playItem.ClickedCh:
				t.editor.TogglePlay()
			case <-t.undoItem.ClickedCh:
				t.logIfErr("undo", t.editor.Undo())
			case <-t.redoItem.ClickedCh:
				t.logIfErr("redo", t.editor.Redo())
			case <-resetItem.ClickedCh:
				t.logIfErr("reset", t.editor.Reset(context.Background()))
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
	t.logger.Info("system tray exiting")
}

func (t *Tray) logIfErr(action string, err error) {
	if err != nil {
		t.logger.Warn("tray action failed", "action", action, "error", err)
	}
}

// refresh mirrors snapshot state into the menu. Safe to call from any goroutine.
func (t *Tray) refresh(snap editor.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return
	}

	status := "Status: Idle"
	switch snap.State() {
	case editor.StatePlaying:
		status = fmt.Sprintf("Status: Playing %.1fs / %.1fs", snap.CurrentTime, snap.TotalDuration)
	case editor.StateAttention:
		status = fmt.Sprintf("Status: %d timeline issue(s)", len(snap.Issues))
	}
	t.statusItem.SetTitle(status)

	mediaTitle := fmt.Sprintf("Media: %d", len(snap.Media))
	if n := snap.PendingMedia(); n > 0 {
		mediaTitle += fmt.Sprintf(" (%d pending)", n)
	}
	t.mediaItem.SetTitle(mediaTitle)

	if snap.IsPlaying {
		t.playItem.SetTitle("Pause")
	} else {
		t.playItem.SetTitle("Play")
	}
	setEnabled(t.undoItem, snap.CanUndo)
	setEnabled(t.redoItem, snap.CanRedo)
}

func setEnabled(item *systray.MenuItem, on bool) {
	if on {
		item.Enable()
	} else {
		item.Disable()
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}
