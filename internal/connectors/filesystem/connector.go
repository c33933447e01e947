// Package filesystem implements the source adapter for local directories.
// Files matching the configured glob are enumerated every poll cycle, so
// deletions are detectable; fsnotify provides change hints between cycles.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/helical-labs/medwatch/internal/core/domain"
	"github.com/helical-labs/medwatch/internal/core/ports/driven"
	"github.com/helical-labs/medwatch/internal/logger"
	"github.com/helical-labs/medwatch/internal/normalisers/plaintext"
)

var _ driven.SourceAdapter = (*Connector)(nil)

// DefaultMaxFileSize bounds how large a file the connector will read.
const DefaultMaxFileSize = 4 << 20 // 4 MiB

// Config keys understood by this connector.
const (
	configPath        = "path"
	configGlob        = "glob"
	configMaxFileSize = "max_file_size"
)

// Connector polls a directory tree for text documents.
type Connector struct {
	sourceID    string
	root        string
	glob        string
	maxFileSize int64

	watcher *fsnotify.Watcher
}

// New creates a filesystem connector from a source definition.
// The source config requires "path"; "glob" defaults to "*" and
// "max_file_size" (bytes) bounds individual file reads.
func New(source domain.Source) (*Connector, error) {
	root := source.Config[configPath]
	if root == "" {
		return nil, fmt.Errorf("%w: filesystem source %s requires config key %q",
			domain.ErrInvalidInput, source.ID, configPath)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", domain.ErrSourceUnavailable, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	glob := source.Config[configGlob]
	if glob == "" {
		glob = "*"
	}
	if _, err := filepath.Match(glob, ""); err != nil {
		return nil, fmt.Errorf("%w: bad glob %q: %v", domain.ErrInvalidInput, glob, err)
	}

	maxSize := int64(DefaultMaxFileSize)
	if raw := source.Config[configMaxFileSize]; raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%w: bad %s %q", domain.ErrInvalidInput, configMaxFileSize, raw)
		}
		maxSize = parsed
	}

	return &Connector{
		sourceID:    source.ID,
		root:        root,
		glob:        glob,
		maxFileSize: maxSize,
	}, nil
}

// Kind returns the adapter kind identifier.
func (c *Connector) Kind() string { return "filesystem" }

// SourceID returns the configured source ID.
func (c *Connector) SourceID() string { return c.sourceID }

// Capabilities reports full enumeration and watch support.
func (c *Connector) Capabilities() driven.AdapterCapabilities {
	return driven.AdapterCapabilities{
		Enumerates:    true,
		SupportsWatch: true,
	}
}

// Poll walks the directory tree and returns a snapshot per matching file.
// Unreadable or oversized files are skipped with a log line; a vanished
// root yields ErrSourceUnavailable.
func (c *Connector) Poll(ctx context.Context) ([]domain.Snapshot, error) {
	if _, err := os.Stat(c.root); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	var snapshots []domain.Snapshot
	err := filepath.WalkDir(c.root, func(path string, entry fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			logger.Warn("filesystem: skipping %s: %v", path, err)
			return nil
		}
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") && path != c.root {
				return filepath.SkipDir
			}
			return nil
		}

		matched, err := filepath.Match(c.glob, entry.Name())
		if err != nil || !matched {
			return nil
		}

		snap, ok := c.readFile(path, entry)
		if ok {
			snapshots = append(snapshots, snap)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", c.root, err)
	}
	return snapshots, nil
}

// readFile turns one file into a snapshot. Returns false when the file
// should be skipped.
func (c *Connector) readFile(path string, entry fs.DirEntry) (domain.Snapshot, bool) {
	info, err := entry.Info()
	if err != nil {
		logger.Warn("filesystem: stat %s: %v", path, err)
		return domain.Snapshot{}, false
	}
	if info.Size() > c.maxFileSize {
		logger.Warn("filesystem: %s exceeds %d bytes, skipping", path, c.maxFileSize)
		return domain.Snapshot{}, false
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("filesystem: read %s: %v", path, err)
		return domain.Snapshot{}, false
	}

	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		rel = path
	}

	return domain.Snapshot{
		SourceID:  c.sourceID,
		ItemID:    filepath.ToSlash(rel),
		Title:     plaintext.TitleFromPath(path),
		Content:   plaintext.Normalise(string(raw)),
		FetchedAt: info.ModTime(),
		Metadata: map[string]string{
			"path": path,
			"size": strconv.FormatInt(info.Size(), 10),
		},
	}, true
}

// Watch emits a wakeup whenever anything under the root changes. Events
// are coalesced: the channel holds at most one pending wakeup.
func (c *Connector) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(c.root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", c.root, err)
	}
	c.watcher = watcher

	wake := make(chan struct{}, 1)
	go func() {
		defer close(wake)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				logger.Debug("filesystem: fs event %s", event)
				select {
				case wake <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("filesystem: watcher error: %v", err)
			}
		}
	}()
	return wake, nil
}

// Close stops the watcher if one is running.
func (c *Connector) Close() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}
