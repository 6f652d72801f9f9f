package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/relaykit/relay/pkg/chain"
	"github.com/relaykit/relay/pkg/httpmsg"
)

// Snapshot is one immutable view of the configured chain. Callers keep using
// the snapshot they hold; a reload produces a new one and never mutates old
// snapshots, mirroring the chain's own copy-on-write append.
type Snapshot struct {
	Chain      *chain.Chain
	Fallback   *httpmsg.Response
	Name       string
	Generation int64
}

// FileProvider watches a configuration file and rebuilds the chain on
// change. Reload failures keep the last good snapshot active.
type FileProvider struct {
	path     string
	registry *Registry
	logger   *slog.Logger
	metrics  *Metrics

	mu          sync.RWMutex
	snapshot    Snapshot
	subscribers []chan Snapshot

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

// NewFileProvider loads the file, starts watching its directory, and returns
// the provider. The initial load must succeed: a provider that never had a
// valid chain has nothing to serve.
func NewFileProvider(path string, reg *Registry, logger *slog.Logger) (*FileProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = DefaultRegistry()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &FileProvider{
		path:     absPath,
		registry: reg,
		logger:   logger,
		metrics:  NewMetrics(),
		watcher:  watcher,
		cancel:   cancel,
	}

	if err := p.load(ctx); err != nil {
		cancel()
		_ = watcher.Close()
		return nil, err
	}

	// Watch the directory, not the file: editors and config pushers often
	// replace the file, which retargets a direct file watch.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		cancel()
		_ = watcher.Close()
		return nil, fmt.Errorf("config: watch directory: %w", err)
	}

	go p.watchLoop(ctx)
	return p, nil
}

// Current returns the active snapshot.
func (p *FileProvider) Current() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Subscribe returns a channel receiving snapshots, starting with the current
// one. Slow consumers miss intermediate snapshots rather than blocking
// reloads.
func (p *FileProvider) Subscribe() <-chan Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan Snapshot, 1)
	ch <- p.snapshot
	p.subscribers = append(p.subscribers, ch)
	return ch
}

// Metrics exposes the provider's Prometheus collectors.
func (p *FileProvider) Metrics() *Metrics {
	return p.metrics
}

// Close stops the watcher. Held snapshots remain usable.
func (p *FileProvider) Close() error {
	p.cancel()
	return p.watcher.Close()
}

func (p *FileProvider) watchLoop(ctx context.Context) {
	var debounce *time.Timer
	const debounceDelay = 100 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Chmod) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, func() {
					if err := p.load(ctx); err != nil {
						p.metrics.RecordReload("failure")
						p.logger.Error("config reload failed, keeping last good chain",
							"path", p.path,
							"error", err,
						)
					}
				})
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", "error", err)
		}
	}
}

func (p *FileProvider) load(ctx context.Context) error {
	cfg, err := Load(p.path)
	if err != nil {
		return err
	}
	built, err := Build(ctx, cfg, p.registry)
	if err != nil {
		return err
	}

	p.mu.Lock()
	next := Snapshot{
		Chain:      built,
		Fallback:   cfg.Fallback(),
		Name:       cfg.Chain.Name,
		Generation: p.snapshot.Generation + 1,
	}
	p.snapshot = next
	subscribers := make([]chan Snapshot, len(p.subscribers))
	copy(subscribers, p.subscribers)
	p.mu.Unlock()

	p.metrics.RecordReload("success")
	p.metrics.SetSteps(built.Len())
	p.logger.Info("configuration loaded",
		"path", p.path,
		"chain", next.Name,
		"steps", built.Len(),
		"generation", next.Generation,
	)

	for _, ch := range subscribers {
		select {
		case ch <- next:
		default:
		}
	}
	return nil
}
