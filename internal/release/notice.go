package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jvmtools/svcgen/internal/branding"
	"github.com/jvmtools/svcgen/internal/platform"
	"github.com/jvmtools/svcgen/internal/version"
)

const noticeFile = "version-check.json"

// MaxNoticeAge is how long a Notice is trusted before it is refreshed.
const MaxNoticeAge = 24 * time.Hour

// Notice is the remembered outcome of the last release check.
type Notice struct {
	Latest    string    `json:"latest_version"`
	Current   string    `json:"current_version"`
	CheckedAt time.Time `json:"checked_at"`
	Newer     bool      `json:"update_available"`
}

// LoadNotice reads the notice stored in dir. It returns nil, nil before the
// first check.
func LoadNotice(dir string) (*Notice, error) {
	data, err := os.ReadFile(filepath.Join(dir, noticeFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading release notice: %w", err)
	}
	var n Notice
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parsing release notice: %w", err)
	}
	return &n, nil
}

// Save stores the notice in dir.
func (n *Notice) Save(dir string) error {
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling release notice: %w", err)
	}
	if err := platform.WriteFileAtomic(filepath.Join(dir, noticeFile), data, platform.FilePerm); err != nil {
		return fmt.Errorf("writing release notice: %w", err)
	}
	return nil
}

// Stale reports whether n must be refreshed for the running version.
// A nil notice is always stale.
func (n *Notice) Stale(current string, maxAge time.Duration) bool {
	if n == nil || n.Current != current {
		return true
	}
	return time.Since(n.CheckedAt) > maxAge
}

// Refresh fetches the latest release and stores a new notice in dir. The
// notice is returned even when saving it fails.
func (c *Checker) Refresh(ctx context.Context, dir string) (*Notice, error) {
	rel, err := c.Latest(ctx)
	if err != nil {
		return nil, err
	}
	newer, err := version.IsUpdateAvailable(c.current, rel.Tag)
	if err != nil {
		return nil, err
	}
	n := &Notice{Latest: rel.Tag, Current: c.current, CheckedAt: time.Now(), Newer: newer}
	return n, n.Save(dir)
}

// Banner prints the stored notice when it announces a newer release, and
// refreshes a stale notice in the background for the next invocation. It
// never blocks. Development builds are never checked.
func (c *Checker) Banner(w io.Writer, dir string) {
	if version.IsDev(c.current) {
		return
	}
	n, err := LoadNotice(dir)
	if err != nil {
		return
	}
	if n != nil && n.Current == c.current && n.Newer {
		PrintBanner(w, n.Current, n.Latest)
	}
	if n.Stale(c.current, MaxNoticeAge) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_, _ = c.Refresh(ctx, dir)
		}()
	}
}

// PrintBanner prints the update notification to w.
func PrintBanner(w io.Writer, current, latest string) {
	fmt.Fprintf(w, "\nUpdate available: %s -> %s\n", current, latest)
	fmt.Fprintf(w, "    %s/latest\n\n", branding.ReleasesURL())
}
