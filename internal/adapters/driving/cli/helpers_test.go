package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

// writeConfig points cfgPath at a temp config file for the duration of a
// test.
func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	old := cfgPath
	cfgPath = path
	t.Cleanup(func() { cfgPath = old })
}

// injectSink swaps the package-level alert sink for the duration of a test.
func injectSink(t *testing.T, sink *stubSink) {
	t.Helper()
	old := alertSink
	alertSink = sink
	t.Cleanup(func() { alertSink = old })
}

// stubSink is an in-memory AlertSink for command tests.
type stubSink struct {
	sessions []domain.ReasoningSession
	err      error
}

func (s *stubSink) Publish(_ context.Context, session *domain.ReasoningSession) error {
	if s.err != nil {
		return s.err
	}
	s.sessions = append(s.sessions, *session)
	return nil
}

func (s *stubSink) Recent(_ context.Context, limit int) ([]domain.ReasoningSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit > len(s.sessions) {
		limit = len(s.sessions)
	}
	out := make([]domain.ReasoningSession, limit)
	copy(out, s.sessions[:limit])
	return out, nil
}

func (s *stubSink) Get(_ context.Context, sessionID string) (*domain.ReasoningSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.sessions {
		if s.sessions[i].ID == sessionID {
			return &s.sessions[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubSink) Close() error { return nil }

// completedSession builds a terminal session for listing tests.
func completedSession(id string) domain.ReasoningSession {
	return domain.ReasoningSession{
		ID:     id,
		Status: domain.SessionCompleted,
		Trigger: domain.ChangeEvent{
			ItemID:   "advisories/warfarin.txt",
			SourceID: "fda",
			Kind:     domain.ChangeUpdated,
		},
		Steps: []domain.ReasoningStep{
			{Number: 1, Kind: domain.StepRetrieve, Input: "warfarin", Output: "1 snippet"},
			{Number: 2, Kind: domain.StepDecision, Output: "safety_score=18 alerts=1"},
		},
		Result: &domain.Decision{
			SafetyScore: 18,
			Summary:     "Critical interaction found.",
			Alerts: []domain.Alert{
				{
					Severity:         domain.SeverityCritical,
					Title:            "Warfarin-aspirin interaction",
					AffectedEntities: []string{"warfarin", "aspirin"},
				},
			},
		},
		StartedAt: time.Now().Add(-time.Minute),
		EndedAt:   time.Now(),
	}
}
