// Package queue publishes pipeline run events for downstream consumers.
package queue

import (
	"context"

	"skills-backend/internal/shared/telemetry"
)

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// NoopClient drops every message.
type NoopClient struct{}

// Send does nothing.
func (NoopClient) Send(context.Context, Message) error { return nil }

// LogClient writes each message as a pipeline.event log line. Local runs use
// it in place of SQS.
type LogClient struct{}

// Send logs msg.
func (LogClient) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fields := map[string]any{
		"run_id":      msg.RunID,
		"user_id":     msg.OwnerID,
		"stage":       msg.Stage,
		"token_cost":  msg.TokenCost,
		"version":     msg.Version,
		"enqueued_at": msg.EnqueuedAt,
	}
	for key, v := range map[string]string{"request_id": msg.RequestID, "error_kind": msg.ErrorKind, "document_id": msg.DocumentID} {
		if v != "" {
			fields[key] = v
		}
	}
	telemetry.Info("pipeline.event", fields)
	return nil
}

var (
	_ Client = NoopClient{}
	_ Client = LogClient{}
)
