package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Recorder writes every message the console handles, and the frame it
// rendered afterwards, to a directory for debugging.
type Recorder struct {
	logFile  *os.File
	frameDir string
	mu       sync.Mutex
	frameNum int
}

// NewRecorder creates a recorder under dir. An empty dir picks a fresh
// directory in the system temp dir.
func NewRecorder(dir string) (*Recorder, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), fmt.Sprintf("schoolctl-console-%d", time.Now().Unix()))
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create recording directory: %w", err)
	}

	logFile, err := os.Create(filepath.Join(filepath.Clean(dir), "console.log")) // #nosec G304 -- constructed path
	if err != nil {
		return nil, fmt.Errorf("create recording log: %w", err)
	}

	r := &Recorder{logFile: logFile, frameDir: dir}
	r.Log("console recording started at %s", dir)
	return r, nil
}

// Dir returns where frames are written.
func (r *Recorder) Dir() string {
	if r == nil {
		return ""
	}
	return r.frameDir
}

// Frames returns how many frames were captured.
func (r *Recorder) Frames() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameNum
}

// RecordState captures the state after msg. Spinner ticks are not recorded.
func (r *Recorder) RecordState(m Model, msg tea.Msg) {
	if r == nil {
		return
	}
	if _, tick := msg.(spinner.TickMsg); tick {
		return
	}

	r.mu.Lock()
	r.frameNum++
	frame := r.frameNum
	r.mu.Unlock()

	r.Log("\n=== Frame %d ===", frame)
	r.Log("Time: %s", time.Now().Format("15:04:05.000"))
	r.Log("Message: %T", msg)
	r.Log("Mode: %d  Busy: %v", m.mode, m.busy)
	if s := m.current(); s != nil {
		st := s.State()
		r.Log("Screen: %s  Page: %d/%d  Total: %d", s.Name(), st.Page.Index+1, st.TotalPages, st.Total)
	}

	view := m.View()
	framePath := filepath.Join(r.frameDir, fmt.Sprintf("frame-%04d.txt", frame))
	if err := os.WriteFile(framePath, []byte(view), 0600); err != nil {
		r.Log("Error saving frame: %v", err)
	}
}

// Log writes to the log file.
func (r *Recorder) Log(format string, args ...any) {
	if r == nil || r.logFile == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := fmt.Fprintf(r.logFile, format+"\n", args...); err != nil {
		return
	}
	_ = r.logFile.Sync()
}

// Close closes the recorder.
func (r *Recorder) Close() {
	if r == nil || r.logFile == nil {
		return
	}
	r.Log("Recording complete. %d frames captured.", r.Frames())
	_ = r.logFile.Close()
}
