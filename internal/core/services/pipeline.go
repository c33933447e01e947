package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/helical-labs/medwatch/internal/core/domain"
	"github.com/helical-labs/medwatch/internal/core/ports/driven"
	"github.com/helical-labs/medwatch/internal/core/ports/driving"
	"github.com/helical-labs/medwatch/internal/logger"
)

var _ driving.Pipeline = (*IngestPipeline)(nil)

// boundSource pairs a configured source with its adapter and live stats.
type boundSource struct {
	source  domain.Source
	adapter driven.SourceAdapter

	mu    sync.Mutex
	stats domain.SourceStats
}

func (b *boundSource) recordPoll(changes int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.Polls++
	b.stats.LastPoll = time.Now()
	if err != nil {
		b.stats.Failures++
		b.stats.LastError = err.Error()
		return
	}
	b.stats.Changes += changes
}

func (b *boundSource) snapshot() domain.SourceStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// IngestPipeline schedules source adapters, runs delta detection over their
// snapshots, applies the resulting change events to the document index and
// dispatches trigger-worthy events to the reasoner.
//
// Each source gets its own scheduler goroutine; a failing source never
// stalls the others.
type IngestPipeline struct {
	detector *DeltaDetector
	index    *DocumentIndex
	reasoner driving.Reasoner

	mu      sync.Mutex
	bound   []*boundSource
	running bool

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewIngestPipeline creates a pipeline. The reasoner may be nil, in which
// case trigger dispatch is disabled and the pipeline only maintains the
// index.
func NewIngestPipeline(detector *DeltaDetector, index *DocumentIndex, reasoner driving.Reasoner) *IngestPipeline {
	return &IngestPipeline{
		detector: detector,
		index:    index,
		reasoner: reasoner,
		stop:     make(chan struct{}),
	}
}

// Bind attaches an adapter for a configured source. All binds must happen
// before Run.
func (p *IngestPipeline) Bind(source domain.Source, adapter driven.SourceAdapter) error {
	if source.ID == "" {
		return fmt.Errorf("%w: source has no ID", domain.ErrInvalidInput)
	}
	if adapter == nil {
		return fmt.Errorf("%w: source %s has no adapter", domain.ErrInvalidInput, source.ID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("cannot bind source while pipeline is running")
	}
	p.bound = append(p.bound, &boundSource{
		source:  source,
		adapter: adapter,
		stats:   domain.SourceStats{SourceID: source.ID},
	})
	return nil
}

// Run starts one scheduler per bound source and blocks until the context
// is cancelled or Stop is called. Adapters are closed on the way out.
func (p *IngestPipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("pipeline already running")
	}
	p.running = true
	bound := p.bound
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("pipeline: starting %d source schedulers", len(bound))
	for _, b := range bound {
		p.wg.Add(1)
		go p.schedule(ctx, b)
	}

	p.wg.Wait()

	for _, b := range bound {
		if err := b.adapter.Close(); err != nil {
			logger.Warn("pipeline: closing adapter for %s: %v", b.source.ID, err)
		}
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	logger.Info("pipeline: stopped")
	return nil
}

// Stop initiates shutdown of all schedulers. Safe to call more than once.
func (p *IngestPipeline) Stop() error {
	p.stopOnce.Do(func() { close(p.stop) })
	return nil
}

// Status returns per-source poll statistics and the number of reasoning
// sessions in flight.
func (p *IngestPipeline) Status(_ context.Context) (*driving.PipelineStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := &driving.PipelineStatus{Running: p.running}
	for _, b := range p.bound {
		status.Sources = append(status.Sources, b.snapshot())
	}
	if p.reasoner != nil {
		status.ActiveSessions = p.reasoner.Active()
	}
	return status, nil
}

// schedule runs the poll loop for one source: an immediate first cycle,
// then interval ticks, with watch wakeups pulling the next cycle forward.
func (p *IngestPipeline) schedule(ctx context.Context, b *boundSource) {
	defer p.wg.Done()

	interval := b.source.EffectiveInterval()
	logger.Debug("pipeline: scheduling %s every %s", b.source.ID, interval)

	var wake <-chan struct{}
	if b.adapter.Capabilities().SupportsWatch {
		ch, err := b.adapter.Watch(ctx)
		if err != nil {
			logger.Warn("pipeline: watch unavailable for %s, falling back to polling only: %v", b.source.ID, err)
		} else {
			wake = ch
		}
	}

	p.pollOnce(ctx, b)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx, b)
		case _, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
			logger.Debug("pipeline: wakeup for %s", b.source.ID)
			p.pollOnce(ctx, b)
			ticker.Reset(interval)
		}
	}
}

// pollOnce runs one full cycle for a source: fetch snapshots, detect
// deltas, apply them to the index, sweep removals for enumerating
// adapters and dispatch trigger-worthy events.
func (p *IngestPipeline) pollOnce(ctx context.Context, b *boundSource) {
	snapshots, err := b.adapter.Poll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Warn("pipeline: poll failed for %s: %v", b.source.ID, err)
		b.recordPoll(0, err)
		return
	}

	var events []domain.ChangeEvent
	listing := make([]string, 0, len(snapshots))

	for _, snap := range snapshots {
		listing = append(listing, snap.ItemID)
		event, err := p.detector.Detect(ctx, snap)
		if err != nil {
			logger.Warn("pipeline: delta detection failed for %s/%s: %v", snap.SourceID, snap.ItemID, err)
			continue
		}
		if event != nil {
			events = append(events, *event)
		}
	}

	if b.adapter.Capabilities().Enumerates {
		removed, err := p.detector.Sweep(ctx, b.source.ID, listing, time.Now())
		if err != nil {
			logger.Warn("pipeline: removal sweep failed for %s: %v", b.source.ID, err)
		} else {
			events = append(events, removed...)
		}
	}

	for _, event := range events {
		logger.Info("pipeline: %s %s from %s", event.Kind, event.ItemID, event.SourceID)
		if err := p.index.Apply(ctx, event, b.source.Priority); err != nil {
			logger.Warn("pipeline: index apply failed for %s: %v", event.ItemID, err)
			continue
		}
		if b.source.TriggerWorthy && p.reasoner != nil {
			if err := p.reasoner.Submit(ctx, event); err != nil {
				logger.Warn("pipeline: trigger dispatch failed for %s: %v", event.ItemID, err)
			}
		}
	}

	b.recordPoll(len(events), nil)
}
