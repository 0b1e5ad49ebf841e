package orderedit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/audit"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/reconcile"
	"github.com/noah-isme/backend-pos/internal/session"
	"github.com/noah-isme/backend-pos/internal/upstream"
)

// Upstream is the retail API surface the orchestrator needs.
type Upstream interface {
	FetchOrder(ctx context.Context, orderID int64) (map[string]any, error)
	UpdateOrder(ctx context.Context, orderID int64, payload any) (map[string]any, error)
	SearchCustomers(ctx context.Context, query string, page, perPage int) ([]upstream.Customer, error)
}

// Recorder persists submission attempts to the audit trail.
type Recorder interface {
	RecordSubmission(ctx context.Context, sub audit.Submission) error
}

// Service orchestrates the full order editing flow: seeding a session from a
// persisted order, deriving totals, building the reconciliation payload and
// submitting it upstream.
type Service struct {
	Sessions *session.Service
	Client   Upstream
	Calc     pricing.Calculator
	Locks    lock.Locker
	Bus      *events.Bus
	Audit    Recorder
	Logger   zerolog.Logger
	LockTTL  time.Duration
}

// Preview is the read-only view of what a submission would send.
type Preview struct {
	Instructions []reconcile.Instruction `json:"instructions"`
	Summary      pricing.Summary         `json:"summary"`
	Adds         int                     `json:"adds"`
	Updates      int                     `json:"updates"`
	Deletes      int                     `json:"deletes"`
}

// SubmitResult is handed to the confirmation view after a successful
// submission. The session stays alive, in confirming state, until the user
// dismisses the confirmation.
type SubmitResult struct {
	Session      *session.Session `json:"session"`
	Confirmation Normalized       `json:"confirmation"`
	Summary      pricing.Summary  `json:"summary"`
}

// Start fetches the order from the retail API and opens an editing session
// seeded with its lines and payment state.
func (s *Service) Start(ctx context.Context, orderID int64, staffID string) (*session.Session, error) {
	if s == nil || s.Sessions == nil || s.Client == nil {
		return nil, errors.New("order edit service not configured")
	}
	if orderID <= 0 {
		return nil, common.NewAppError("BAD_REQUEST", "order id is required", http.StatusBadRequest, nil)
	}

	started := time.Now()
	raw, err := s.Client.FetchOrder(ctx, orderID)
	s.observeUpstream("fetch_order", started, err)
	if err != nil {
		return nil, s.upstreamError(err)
	}

	normalized := Normalize(raw)
	if normalized.ID == 0 {
		normalized.ID = orderID
	}
	order := ToOriginalOrder(normalized)
	cust := CustomerFromPayload(normalized.Customer)

	sess, err := s.Sessions.Start(ctx, order, cust, staffID)
	if err != nil {
		return nil, err
	}
	if obs.ActiveSessionsStarted != nil {
		obs.ActiveSessionsStarted.Inc()
	}
	s.emit(ctx, events.TopicSessionStarted, order.ID, map[string]any{
		"session_id": sess.ID,
		"staff_id":   staffID,
	})
	return sess, nil
}

// Totals recomputes the full price summary for the session.
func (s *Service) Totals(ctx context.Context, sessionID string) (pricing.Summary, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return pricing.Summary{}, err
	}
	return s.Calc.Compute(pricingItems(sess.Items), pricingSettings(sess.Settings), pricingCustomer(sess.Customer)), nil
}

// PreviewSubmission builds the change set and summary without touching
// session state or the retail API.
func (s *Service) PreviewSubmission(ctx context.Context, sessionID string) (Preview, error) {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return Preview{}, err
	}
	payload, summary := BuildPayload(sess, s.Calc)
	p := Preview{Instructions: payload.Items, Summary: summary}
	if p.Instructions == nil {
		p.Instructions = []reconcile.Instruction{}
	}
	p.Adds, p.Updates, p.Deletes = countActions(payload.Items)
	return p, nil
}

// Submit validates the session, builds the reconciliation payload and sends
// it upstream. The per-session lock makes a second in-flight submission fail
// fast instead of queueing, and the upstream call itself is never retried.
func (s *Service) Submit(ctx context.Context, sessionID string) (*SubmitResult, error) {
	if s == nil || s.Sessions == nil || s.Client == nil {
		return nil, errors.New("order edit service not configured")
	}

	var result *SubmitResult
	run := func(ctx context.Context) error {
		sess, err := s.Sessions.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := validateForSubmit(sess); err != nil {
			s.countSubmission("rejected")
			s.record(ctx, sess, nil, audit.OutcomeRejected, err.Error())
			return err
		}

		payload, summary := BuildPayload(sess, s.Calc)
		started := time.Now()
		raw, err := s.Client.UpdateOrder(ctx, sess.Original.ID, payload)
		s.observeUpstream("update_order", started, err)
		if err != nil {
			s.countSubmission("failed")
			appErr := s.upstreamError(err)
			s.record(ctx, sess, payload.Items, audit.OutcomeFailed, appErr.Error())
			s.emit(ctx, events.TopicSubmissionFailed, sess.Original.ID, map[string]any{
				"session_id": sess.ID,
				"message":    appErr.Error(),
			})
			return appErr
		}

		confirmation := Normalize(raw)
		if confirmation.ID == 0 {
			confirmation.ID = sess.Original.ID
		}
		confMap := toMap(confirmation)
		sess, err = s.Sessions.MarkConfirming(ctx, sessionID, confMap)
		if err != nil {
			return err
		}

		s.countSubmission("accepted")
		if obs.SubmissionInstructions != nil {
			adds, updates, deletes := countActions(payload.Items)
			obs.SubmissionInstructions.WithLabelValues("add").Observe(float64(adds))
			obs.SubmissionInstructions.WithLabelValues("update").Observe(float64(updates))
			obs.SubmissionInstructions.WithLabelValues("delete").Observe(float64(deletes))
		}
		s.record(ctx, sess, payload.Items, audit.OutcomeAccepted, "")
		s.emit(ctx, events.TopicSubmissionAccepted, sess.Original.ID, map[string]any{
			"session_id":  sess.ID,
			"grand_total": summary.GrandTotal,
		})

		result = &SubmitResult{Session: sess, Confirmation: confirmation, Summary: summary}
		return nil
	}

	err := s.Locks.TryWithLock(ctx, "editsubmit:"+sessionID, s.lockTTL(), run)
	if errors.Is(err, lock.ErrLocked) {
		return nil, common.NewAppError("SUBMISSION_IN_FLIGHT", "a submission for this session is already in progress", http.StatusConflict, err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Dismiss closes the confirmation view. Only then are the session's edits
// actually cleared; the confirmation data stays referenceable until this
// call. Dismissing a session that never reached confirming state is a no-op.
func (s *Service) Dismiss(ctx context.Context, sessionID string) error {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.State != session.StateConfirming {
		return nil
	}
	if err := s.Sessions.Clear(ctx, sessionID); err != nil {
		return err
	}
	s.emit(ctx, events.TopicConfirmationCleared, sess.Original.ID, map[string]any{"session_id": sessionID})
	return nil
}

// Cancel abandons the session without submitting.
func (s *Service) Cancel(ctx context.Context, sessionID string) error {
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.Sessions.Clear(ctx, sessionID); err != nil {
		return err
	}
	s.emit(ctx, events.TopicSessionCancelled, sess.Original.ID, map[string]any{"session_id": sessionID})
	return nil
}

// SearchCustomers proxies the customer lookup used to attach a member to a
// session.
func (s *Service) SearchCustomers(ctx context.Context, query string, page, perPage int) ([]upstream.Customer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []upstream.Customer{}, nil
	}
	started := time.Now()
	out, err := s.Client.SearchCustomers(ctx, query, page, perPage)
	s.observeUpstream("search_customers", started, err)
	if err != nil {
		return nil, s.upstreamError(err)
	}
	if out == nil {
		out = []upstream.Customer{}
	}
	return out, nil
}

// validateForSubmit enforces the local preconditions: at least one line and
// every line carrying a product reference and a positive quantity. Failures
// never reach the network.
func validateForSubmit(sess *session.Session) error {
	if len(sess.Items) == 0 {
		return common.NewAppError("VALIDATION", "add at least one item before submitting", http.StatusUnprocessableEntity, nil)
	}
	for i, it := range sess.Items {
		if it.ProductID <= 0 {
			return common.NewAppError("VALIDATION",
				fmt.Sprintf("line %d is missing a product reference", i+1),
				http.StatusUnprocessableEntity, nil)
		}
		if it.Quantity <= 0 {
			name := it.Name
			if name == "" {
				name = fmt.Sprintf("line %d", i+1)
			}
			return common.NewAppError("VALIDATION",
				fmt.Sprintf("%s needs a quantity of at least 1", name),
				http.StatusUnprocessableEntity, nil)
		}
	}
	return nil
}

// upstreamError maps a retail API failure onto the canonical error shape.
// Validation responses keep their per-field details so the caller can show
// them verbatim.
func (s *Service) upstreamError(err error) *common.AppError {
	var ue *upstream.Error
	if errors.As(err, &ue) {
		status := http.StatusBadGateway
		code := "UPSTREAM"
		var details any
		if ue.Validation() {
			status = http.StatusUnprocessableEntity
			code = "UPSTREAM_VALIDATION"
			details = ue.Fields
		} else if ue.Status >= 400 && ue.Status < 500 {
			status = ue.Status
		}
		return &common.AppError{Code: code, Message: ue.Message, HTTPStatus: status, Err: err, Details: details}
	}
	return common.NewAppError("UPSTREAM", "Unable to reach the orders service", http.StatusBadGateway, err)
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL > 0 {
		return s.LockTTL
	}
	return 30 * time.Second
}

func (s *Service) countSubmission(result string) {
	if obs.SubmissionTotal != nil {
		obs.SubmissionTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) observeUpstream(operation string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	if obs.UpstreamRequestTotal != nil {
		obs.UpstreamRequestTotal.WithLabelValues(operation, result).Inc()
	}
	if obs.UpstreamLatency != nil {
		obs.UpstreamLatency.WithLabelValues(operation).Observe(float64(time.Since(started).Milliseconds()))
	}
}

func (s *Service) record(ctx context.Context, sess *session.Session, instructions []reconcile.Instruction, outcome, message string) {
	if s.Audit == nil {
		return
	}
	adds, updates, deletes := countActions(instructions)
	sub := audit.Submission{
		SessionID: sess.ID,
		OrderID:   sess.Original.ID,
		StaffID:   sess.StaffID,
		Adds:      adds,
		Updates:   updates,
		Deletes:   deletes,
		Outcome:   outcome,
		Message:   message,
	}
	if err := s.Audit.RecordSubmission(ctx, sub); err != nil {
		s.Logger.Error().Err(err).Str("session_id", sess.ID).Msg("failed to record submission audit")
	}
}

func (s *Service) emit(ctx context.Context, topic string, orderID int64, payload map[string]any) {
	if s.Bus == nil {
		return
	}
	if _, err := s.Bus.Emit(ctx, topic, orderID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Msg("event emission incomplete")
	}
}

func countActions(instructions []reconcile.Instruction) (adds, updates, deletes int) {
	for _, in := range instructions {
		switch in.Action {
		case reconcile.ActionAdd:
			adds++
		case reconcile.ActionUpdate:
			updates++
		case reconcile.ActionDelete:
			deletes++
		}
	}
	return
}

func toMap(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return out
}
