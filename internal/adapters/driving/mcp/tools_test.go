package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns snippets", func(t *testing.T) {
		mockRetrieval := &mockRetrievalService{
			snippets: []domain.Snippet{
				{
					ItemID:    "advisories/warfarin.txt",
					SourceID:  "fda",
					Title:     "Warfarin Advisory",
					Text:      "Bleeding risk increases when combined with aspirin.",
					Score:     0.91,
					UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
				},
			},
		}

		ports := &Ports{Retrieval: mockRetrieval}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := RetrieveInput{Query: "warfarin bleeding", Limit: 5}
		_, output, err := server.handleRetrieve(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Snippets, 1)
		assert.Equal(t, "advisories/warfarin.txt", output.Snippets[0].ItemID)
		assert.Equal(t, "fda", output.Snippets[0].SourceID)
		assert.Equal(t, "Warfarin Advisory", output.Snippets[0].Title)
		assert.Equal(t, 0.91, output.Snippets[0].Score)
		assert.Equal(t, "2026-03-01T12:00:00Z", output.Snippets[0].UpdatedAt)
	})

	t.Run("passes query and source filter through", func(t *testing.T) {
		mockRetrieval := &mockRetrievalService{}
		ports := &Ports{Retrieval: mockRetrieval}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := RetrieveInput{Query: "interactions", Limit: 3, Sources: []string{"ema"}}
		_, _, err = server.handleRetrieve(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "interactions", mockRetrieval.lastQuery)
		assert.Equal(t, 3, mockRetrieval.lastOpts.Limit)
		assert.Equal(t, []string{"ema"}, mockRetrieval.lastOpts.SourceIDs)
	})

	t.Run("returns error on retrieval failure", func(t *testing.T) {
		mockRetrieval := &mockRetrievalService{
			err: errors.New("index unavailable"),
		}

		ports := &Ports{Retrieval: mockRetrieval}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "x"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "index unavailable")
	})
}

func TestServer_handleListAlerts(t *testing.T) {
	ctx := context.Background()

	completed := domain.ReasoningSession{
		ID:     "sess-1",
		Status: domain.SessionCompleted,
		Trigger: domain.ChangeEvent{
			ItemID: "advisories/warfarin.txt",
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
		EndedAt: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	}

	t.Run("returns session summaries", func(t *testing.T) {
		ports := &Ports{
			Retrieval: &mockRetrievalService{},
			Alerts:    &mockAlertSink{sessions: []domain.ReasoningSession{completed}},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleListAlerts(ctx, nil, ListAlertsInput{Limit: 10})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Sessions, 1)

		got := output.Sessions[0]
		assert.Equal(t, "sess-1", got.SessionID)
		assert.Equal(t, "COMPLETED", got.Status)
		assert.Equal(t, "advisories/warfarin.txt", got.TriggerItemID)
		require.NotNil(t, got.SafetyScore)
		assert.Equal(t, 18, *got.SafetyScore)
		require.Len(t, got.Alerts, 1)
		assert.Equal(t, "critical", got.Alerts[0].Severity)
		assert.Equal(t, []string{"warfarin", "aspirin"}, got.Alerts[0].Entities)
	})

	t.Run("failed session carries reason, no score", func(t *testing.T) {
		failed := domain.ReasoningSession{
			ID:            "sess-2",
			Status:        domain.SessionFailed,
			FailureReason: "step-budget-exceeded",
		}
		ports := &Ports{
			Retrieval: &mockRetrievalService{},
			Alerts:    &mockAlertSink{sessions: []domain.ReasoningSession{failed}},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleListAlerts(ctx, nil, ListAlertsInput{})

		require.NoError(t, err)
		require.Len(t, output.Sessions, 1)
		assert.Nil(t, output.Sessions[0].SafetyScore)
		assert.Equal(t, "step-budget-exceeded", output.Sessions[0].FailureReason)
	})

	t.Run("no sink degrades to empty", func(t *testing.T) {
		ports := &Ports{Retrieval: &mockRetrievalService{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleListAlerts(ctx, nil, ListAlertsInput{})

		require.NoError(t, err)
		assert.Empty(t, output.Sessions)
	})

	t.Run("returns error on sink failure", func(t *testing.T) {
		ports := &Ports{
			Retrieval: &mockRetrievalService{},
			Alerts:    &mockAlertSink{err: errors.New("db locked")},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleListAlerts(ctx, nil, ListAlertsInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "db locked")
	})
}
