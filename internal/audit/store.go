package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-pos/internal/events"
)

// Submission outcomes persisted to the audit trail.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Submission is one audited submission attempt against the retail API.
type Submission struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	OrderID   int64     `json:"order_id"`
	StaffID   string    `json:"staff_id"`
	Adds      int       `json:"adds"`
	Updates   int       `json:"updates"`
	Deletes   int       `json:"deletes"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists the audit trail. It also backs the event bus.
type Store struct {
	Pool *pgxpool.Pool
}

// RecordSubmission appends a submission attempt to the trail.
func (s *Store) RecordSubmission(ctx context.Context, sub Submission) error {
	if s == nil || s.Pool == nil {
		return errors.New("audit: store not configured")
	}
	const q = `
INSERT INTO edit_submissions (session_id, order_id, staff_id, adds, updates, deletes, outcome, message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.Pool.Exec(ctx, q,
		sub.SessionID, sub.OrderID, sub.StaffID,
		sub.Adds, sub.Updates, sub.Deletes,
		sub.Outcome, sub.Message,
	)
	if err != nil {
		return fmt.Errorf("audit: record submission: %w", err)
	}
	return nil
}

// ListSubmissions returns the most recent submissions, newest first.
func (s *Store) ListSubmissions(ctx context.Context, limit, offset int) ([]Submission, int, error) {
	if s == nil || s.Pool == nil {
		return nil, 0, errors.New("audit: store not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM edit_submissions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("audit: count submissions: %w", err)
	}

	const q = `
SELECT id, session_id, order_id, staff_id, adds, updates, deletes, outcome, message, created_at
FROM edit_submissions
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`
	rows, err := s.Pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("audit: list submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(
			&sub.ID, &sub.SessionID, &sub.OrderID, &sub.StaffID,
			&sub.Adds, &sub.Updates, &sub.Deletes,
			&sub.Outcome, &sub.Message, &sub.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("audit: scan submission: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("audit: iterate submissions: %w", err)
	}
	return out, total, nil
}

// InsertEvent persists a domain event, implementing events.EventStore.
func (s *Store) InsertEvent(ctx context.Context, ev events.Event) (events.Event, error) {
	if s == nil || s.Pool == nil {
		return events.Event{}, errors.New("audit: store not configured")
	}
	const q = `
INSERT INTO domain_events (topic, aggregate_id, payload, occurred_at)
VALUES ($1, $2, $3, $4)
RETURNING id`
	if err := s.Pool.QueryRow(ctx, q, ev.Topic, ev.AggregateID, ev.Payload, ev.OccurredAt).Scan(&ev.ID); err != nil {
		return events.Event{}, fmt.Errorf("audit: insert event: %w", err)
	}
	return ev, nil
}
