package browser

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"aistudio-bridge/internal/config"

	"github.com/go-rod/rod"
)

// SnapshotWriter captures diagnostic screenshots and page HTML when a write
// fails verification or a submission goes dark. Capture is best effort: a
// snapshot that cannot be taken is logged, never propagated.
type SnapshotWriter struct {
	mu   sync.Mutex
	cfg  config.SnapshotConfig
	page func() (*rod.Page, bool)
}

// NewSnapshotWriter builds a writer over a page accessor so captures always
// hit the current playground page, even after a reconnect.
func NewSnapshotWriter(cfg config.SnapshotConfig, page func() (*rod.Page, bool)) (*SnapshotWriter, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "data/snapshots"
		cfg.Dir = dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &SnapshotWriter{cfg: cfg, page: page}, nil
}

// CaptureSnapshot writes <tag>_<ts>.png and <tag>_<ts>.html, then rotates old
// captures beyond the configured keep count.
func (w *SnapshotWriter) CaptureSnapshot(ctx context.Context, tag string) {
	page, ok := w.page()
	if !ok {
		log.Printf("snapshot %s skipped: no page", tag)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	stamp := time.Now().UnixMilli()
	base := filepath.Join(w.cfg.Dir, fmt.Sprintf("%s_%d", tag, stamp))

	img, err := page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		log.Printf("snapshot %s: screenshot failed: %v", tag, err)
	} else if err := os.WriteFile(base+".png", img, 0o644); err != nil {
		log.Printf("snapshot %s: write png failed: %v", tag, err)
	}

	html, err := page.Context(ctx).HTML()
	if err != nil {
		log.Printf("snapshot %s: html dump failed: %v", tag, err)
	} else if err := os.WriteFile(base+".html", []byte(html), 0o644); err != nil {
		log.Printf("snapshot %s: write html failed: %v", tag, err)
	}

	if err := w.rotate(); err != nil {
		log.Printf("snapshot rotation failed: %v", err)
	}
}

// rotate keeps only the newest Keep captures per extension.
func (w *SnapshotWriter) rotate() error {
	keep := w.cfg.Keep
	if keep <= 0 {
		return nil
	}

	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return err
	}

	var captures []struct {
		Name string
		Time time.Time
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".png" && ext != ".html" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		captures = append(captures, struct {
			Name string
			Time time.Time
		}{e.Name(), info.ModTime()})
	}

	sort.Slice(captures, func(i, j int) bool {
		return captures[i].Time.After(captures[j].Time)
	})

	// Each capture is a png+html pair.
	limit := keep * 2
	for i := limit; i < len(captures); i++ {
		_ = os.Remove(filepath.Join(w.cfg.Dir, captures[i].Name))
	}
	return nil
}
