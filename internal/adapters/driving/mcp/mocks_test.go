package mcp

import (
	"context"

	"github.com/helical-labs/medwatch/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	snippets []domain.Snippet
	err      error

	lastQuery string
	lastOpts  domain.RetrieveOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	query string,
	opts domain.RetrieveOptions,
) ([]domain.Snippet, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.snippets, m.err
}

// mockAlertSink is a mock implementation of driven.AlertSink.
type mockAlertSink struct {
	sessions []domain.ReasoningSession
	session  *domain.ReasoningSession
	err      error
}

func (m *mockAlertSink) Publish(_ context.Context, _ *domain.ReasoningSession) error {
	return m.err
}

func (m *mockAlertSink) Recent(_ context.Context, _ int) ([]domain.ReasoningSession, error) {
	return m.sessions, m.err
}

func (m *mockAlertSink) Get(_ context.Context, _ string) (*domain.ReasoningSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.session == nil {
		return nil, domain.ErrNotFound
	}
	return m.session, nil
}

func (m *mockAlertSink) Close() error {
	return nil
}
