package cli

import (
	"context"
	"fmt"

	"github.com/helical-labs/medwatch/internal/adapters/driven/ai"
	configfile "github.com/helical-labs/medwatch/internal/adapters/driven/config/file"
	"github.com/helical-labs/medwatch/internal/adapters/driven/storage/memory"
	"github.com/helical-labs/medwatch/internal/adapters/driven/storage/sqlite"
	"github.com/helical-labs/medwatch/internal/adapters/driven/vector/brute"
	"github.com/helical-labs/medwatch/internal/connectors/filesystem"
	"github.com/helical-labs/medwatch/internal/connectors/webpage"
	"github.com/helical-labs/medwatch/internal/core/domain"
	"github.com/helical-labs/medwatch/internal/core/ports/driven"
	"github.com/helical-labs/medwatch/internal/core/ports/driving"
	"github.com/helical-labs/medwatch/internal/core/services"
	"github.com/helical-labs/medwatch/internal/logger"
	"github.com/helical-labs/medwatch/internal/records"
	"github.com/helical-labs/medwatch/internal/tools"
)

// alertSink is injectable for tests. When nil, commands open the SQLite
// sink from configuration.
var alertSink driven.AlertSink

// openAlertSink returns the sink for read-only commands, with a release
// function. The injected test sink is never closed.
func openAlertSink() (driven.AlertSink, func(), error) {
	if alertSink != nil {
		return alertSink, func() {}, nil
	}
	sink, err := sqlite.NewSink(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open alert sink: %w", err)
	}
	return sink, func() { sink.Close() }, nil
}

// stack is the fully wired monitor: adapters through pipeline through
// orchestrator. Commands that run sessions or ingestion build one from
// configuration.
type stack struct {
	cfg *domain.Config

	detector     *services.DeltaDetector
	index        *services.DocumentIndex
	retrieval    *services.RetrievalService
	orchestrator *services.Orchestrator
	pipeline     *services.IngestPipeline
	sink         driven.AlertSink

	embedder  driven.EmbeddingService
	reasoning driven.ReasoningService

	adapters []driven.SourceAdapter
}

// buildStack wires the full monitor from the configured sources and AI
// settings. Reasoning may be unconfigured, in which case the monitor runs
// index-only and trigger dispatch is disabled.
func buildStack() (*stack, error) {
	cfg, err := configfile.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	embedder, err := ai.CreateAndValidateEmbeddingService(&cfg.Embedding)
	if err != nil {
		return nil, err
	}

	reasoning, err := ai.CreateAndValidateReasoningService(&cfg.Reasoning)
	if err != nil {
		return nil, err
	}
	if reasoning == nil {
		logger.Info("reasoning not configured, running index-only")
	}

	sink := alertSink
	if sink == nil {
		sink, err = sqlite.NewSink(dataDir)
		if err != nil {
			return nil, fmt.Errorf("open alert sink: %w", err)
		}
	}

	index := services.NewDocumentIndex(
		memory.NewDocumentStore(),
		brute.NewIndex(),
		embedder,
		cfg.Embedding.MaxRetries,
	)
	retrieval := services.NewRetrievalService(index)

	registry := tools.NewRegistry()
	store := records.NewStore()
	if cfg.Pipeline.RecordsPath != "" {
		if err := store.LoadFile(cfg.Pipeline.RecordsPath); err != nil {
			return nil, fmt.Errorf("load records: %w", err)
		}
	}
	registry.MustRegister(tools.NewCheckInteractions(store))
	registry.MustRegister(tools.NewListEntityReferences(store))

	var orchestrator *services.Orchestrator
	if reasoning != nil {
		orchestrator = services.NewOrchestrator(retrieval, reasoning, registry, sink, services.OrchestratorConfig{
			StepBudget:            cfg.Pipeline.StepBudget,
			InferRetries:          cfg.Reasoning.MaxRetries,
			StepTimeout:           cfg.Reasoning.StepTimeout,
			MaxConcurrentSessions: cfg.Pipeline.MaxConcurrentSessions,
			ShutdownGrace:         cfg.Pipeline.ShutdownGrace,
		})
	}

	detector := services.NewDeltaDetector(memory.NewFingerprintStore())

	pipeline := services.NewIngestPipeline(detector, index, reasonerOrNil(orchestrator))

	s := &stack{
		cfg:          cfg,
		detector:     detector,
		index:        index,
		retrieval:    retrieval,
		orchestrator: orchestrator,
		pipeline:     pipeline,
		sink:         sink,
		embedder:     embedder,
		reasoning:    reasoning,
	}

	for _, src := range cfg.Sources {
		adapter, err := newAdapter(src)
		if err != nil {
			s.close()
			return nil, err
		}
		if err := pipeline.Bind(src, adapter); err != nil {
			s.close()
			return nil, err
		}
		s.adapters = append(s.adapters, adapter)
	}

	return s, nil
}

// reasonerOrNil avoids handing the pipeline a typed-nil interface value.
func reasonerOrNil(o *services.Orchestrator) driving.Reasoner {
	if o == nil {
		return nil
	}
	return o
}

// newAdapter constructs the adapter for a source's kind.
func newAdapter(source domain.Source) (driven.SourceAdapter, error) {
	switch source.Kind {
	case "filesystem":
		return filesystem.New(source)
	case "webpage":
		return webpage.New(source)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedKind, source.Kind)
	}
}

// primeOnce polls every source a single time and applies the resulting
// changes to the index, without trigger dispatch. One-shot commands use it
// to populate the in-memory index before querying.
func (s *stack) primeOnce(ctx context.Context) error {
	for i, adapter := range s.adapters {
		src := s.cfg.Sources[i]

		snaps, err := adapter.Poll(ctx)
		if err != nil {
			logger.Warn("prime: poll %s failed: %v", src.ID, err)
			continue
		}

		for _, snap := range snaps {
			event, err := s.detector.Detect(ctx, snap)
			if err != nil {
				return fmt.Errorf("detect %s/%s: %w", snap.SourceID, snap.ItemID, err)
			}
			if event == nil {
				continue
			}
			if err := s.index.Apply(ctx, *event, src.Priority); err != nil {
				logger.Warn("prime: index %s failed: %v", event.ItemID, err)
			}
		}
	}
	return nil
}

// close tears down AI services, adapters and the sink. Safe on a partially
// built stack.
func (s *stack) close() {
	for _, adapter := range s.adapters {
		adapter.Close()
	}
	if s.embedder != nil {
		s.embedder.Close()
	}
	if s.reasoning != nil {
		s.reasoning.Close()
	}
	if s.sink != nil && alertSink == nil {
		s.sink.Close()
	}
}
