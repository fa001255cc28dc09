// Package syncfile implements a file-watch sync.Connector: it reads a flag
// configuration file once at startup, then re-reads it whenever the file (or
// its containing directory, to catch atomic replace-on-rename writes) is
// touched.
//
// The watch goes on the parent directory, non-recursively, rather than on
// the file itself: editors and config-management tools commonly write a new
// file and rename it over the original, which a watch on the original inode
// would miss.
package syncfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	syncpkg "github.com/matt-riley/flagdgo/internal/sync"
)

// Config configures a Connector.
type Config struct {
	Path string

	// OfflinePollInterval is a fallback re-read timer used alongside the
	// fsnotify watch, in case the watch is lost (e.g. the directory itself
	// is replaced). Defaults to 5s.
	OfflinePollInterval time.Duration

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.OfflinePollInterval <= 0 {
		c.OfflinePollInterval = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Connector is a sync.Connector backed by a watched local file.
type Connector struct {
	cfg Config

	watcher *fsnotify.Watcher

	payloads chan syncpkg.Payload

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}

	lastContent string
	mu          sync.Mutex
}

var _ syncpkg.Connector = (*Connector)(nil)

// New builds a Connector for the file at cfg.Path.
func New(cfg Config) *Connector {
	cfg = cfg.withDefaults()
	return &Connector{
		cfg:      cfg,
		payloads: make(chan syncpkg.Payload, 100),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Init reads the file once, installs a watch on its parent directory, and
// starts the watch/poll loop. It returns the outcome of the initial read.
func (c *Connector) Init(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("syncfile: new watcher: %w", err)
	}
	c.watcher = watcher

	dir := filepath.Dir(c.cfg.Path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("syncfile: watch %s: %w", dir, err)
	}

	initErr := c.readAndEmit()

	go c.loop()

	return initErr
}

// Payloads returns the channel of sync payloads.
func (c *Connector) Payloads() <-chan syncpkg.Payload {
	return c.payloads
}

// Shutdown stops the watch/poll loop and releases the fsnotify watcher.
func (c *Connector) Shutdown() error {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

func (c *Connector) loop() {
	defer close(c.done)

	poll := time.NewTicker(c.cfg.OfflinePollInterval)
	defer poll.Stop()

	target := filepath.Clean(c.cfg.Path)

	for {
		select {
		case <-c.stop:
			return

		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !(ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) ||
				ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename)) {
				continue
			}
			c.cfg.Logger.Debug("syncfile: change detected", "op", ev.Op.String(), "path", ev.Name)
			_ = c.readAndEmit()

		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.cfg.Logger.Warn("syncfile: watcher error", "error", err)

		case <-poll.C:
			_ = c.readAndEmit()
		}
	}
}

// readAndEmit reads the file and emits a Data or Error payload, suppressing
// a re-emit of Data when the content is unchanged from the last read.
func (c *Connector) readAndEmit() error {
	content, err := os.ReadFile(c.cfg.Path)
	if err != nil {
		c.cfg.Logger.Warn("syncfile: read failed", "path", c.cfg.Path, "error", err)
		c.emit(syncpkg.Payload{Kind: syncpkg.PayloadError, Metadata: map[string]any{"error": err.Error()}})
		return err
	}

	c.mu.Lock()
	unchanged := c.lastContent == string(content)
	c.lastContent = string(content)
	c.mu.Unlock()
	if unchanged {
		return nil
	}

	c.emit(syncpkg.Payload{Kind: syncpkg.PayloadData, Body: string(content)})
	return nil
}

func (c *Connector) emit(p syncpkg.Payload) {
	select {
	case c.payloads <- p:
	case <-c.stop:
	}
}
