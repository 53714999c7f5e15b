package listings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/recares/dme-matcher/internal/domain"
	"github.com/recares/dme-matcher/internal/matching"
	"github.com/recares/dme-matcher/internal/pkg/distlock"
	"github.com/recares/dme-matcher/internal/pkg/logger"
)

// lockKey names the single mutual exclusion scope shared by all handlers.
const lockKey = "listings"

// Sheets names the two record store sheets.
type Sheets struct {
	Main   string
	OptOut string
}

// Options configures a Service.
type Options struct {
	Sheets     Sheets
	Rules      matching.Rules
	OptInLabel string
	// LockRetry is the polling interval while waiting for the store lock.
	LockRetry time.Duration
	// Archiver is optional; when nil the sweep skips the snapshot archive.
	Archiver Archiver
	// Location reads sheet timestamps that carry no offset. Defaults to UTC.
	Location *time.Location
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service runs the submission, opt-out and timer handlers.
type Service struct {
	repo     Repository
	notifier Notifier
	locks    distlock.Factory
	archiver Archiver
	sheets   Sheets
	rules    matching.Rules
	optIn    string
	retry    time.Duration
	loc      *time.Location
	now      func() time.Time
}

// NewService creates a listings service.
func NewService(repo Repository, notifier Notifier, locks distlock.Factory, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		locks:    locks,
		archiver: opts.Archiver,
		sheets:   opts.Sheets,
		rules:    opts.Rules,
		optIn:    opts.OptInLabel,
		retry:    opts.LockRetry,
		loc:      opts.Location,
		now:      opts.Now,
	}
}

// FormEvent is a new response on one of the two sheets. Row is the grid
// index of the response, which identifies the listing that triggered the
// event.
type FormEvent struct {
	Sheet string `json:"sheet"`
	Row   int    `json:"row"`
}

// Result types.
const (
	KindSubmission = "submission"
	KindOptOut     = "opt_out"
)

// EventResult summarizes what a form event did.
type EventResult struct {
	EventID string `json:"event_id"`
	Kind    string `json:"kind"`
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`

	// submission
	Matches  int `json:"matches"`
	Alerted  int `json:"alerted"`
	Resynced int `json:"resynced"`

	// opt-out
	FoundOwn        bool `json:"found_own"`
	Retired         int  `json:"retired"`
	PartnerNotified bool `json:"partner_notified"`
}

// SweepResult summarizes one expiration sweep.
type SweepResult struct {
	EventID string `json:"event_id"`
	Scanned int    `json:"scanned"`
	Warned  int    `json:"warned"`
	Archive string `json:"archive,omitempty"`
}

// ResyncResult summarizes a standalone opt-out resync.
type ResyncResult struct {
	EventID string `json:"event_id"`
	Rows    []int  `json:"rows"`
}

// HandleFormSubmit routes a form event to the submission or opt-out handler
// by sheet name.
func (s *Service) HandleFormSubmit(ctx context.Context, ev FormEvent) (*EventResult, error) {
	if ev.Sheet != s.sheets.Main && ev.Sheet != s.sheets.OptOut {
		return nil, fmt.Errorf("%q: %w", ev.Sheet, ErrUnknownSheet)
	}
	var res *EventResult
	err := s.locked(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.dispatch(ctx, ev)
		return err
	})
	return res, err
}

// Submit appends a new form response to sheet and processes it. An empty
// timestamp cell is filled with the current time.
func (s *Service) Submit(ctx context.Context, sheet string, values []string) (*EventResult, error) {
	if sheet != s.sheets.Main && sheet != s.sheets.OptOut {
		return nil, fmt.Errorf("%q: %w", sheet, ErrUnknownSheet)
	}
	if blank(values) {
		return nil, ErrEmptyRow
	}
	values = append([]string(nil), values...)
	if strings.TrimSpace(values[domain.ColTimestamp]) == "" {
		values[domain.ColTimestamp] = s.now().UTC().Format(time.RFC3339)
	}

	var res *EventResult
	err := s.locked(ctx, func(ctx context.Context) error {
		row, err := s.repo.AppendRow(ctx, sheet, values)
		if err != nil {
			return fmt.Errorf("append response: %w", err)
		}
		res, err = s.dispatch(ctx, FormEvent{Sheet: sheet, Row: row})
		return err
	})
	return res, err
}

func (s *Service) dispatch(ctx context.Context, ev FormEvent) (*EventResult, error) {
	res := &EventResult{EventID: uuid.New().String(), Sheet: ev.Sheet, Row: ev.Row}
	if ev.Sheet == s.sheets.Main {
		res.Kind = KindSubmission
		return res, s.handleSubmission(ctx, res)
	}
	res.Kind = KindOptOut
	return res, s.handleOptOut(ctx, res)
}

func (s *Service) handleSubmission(ctx context.Context, res *EventResult) error {
	grid, h, err := s.mainSheet(ctx)
	if err != nil {
		return err
	}
	if res.Row < 1 || res.Row > grid.Len() {
		return fmt.Errorf("%s row %d: %w", s.sheets.Main, res.Row, ErrRowNotFound)
	}

	resynced, err := s.resync(ctx, grid, h)
	if err != nil {
		return err
	}
	res.Resynced = len(resynced)

	grid, err = s.repo.Snapshot(ctx, s.sheets.Main)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", s.sheets.Main, err)
	}
	all := matching.ParseListings(grid, h, s.loc)
	fresh := all[res.Row-1]
	now := s.now()

	matches := s.rules.MatchesFor(all, fresh, now)
	res.Matches = len(matches)
	if err := s.repo.WriteCell(ctx, s.sheets.Main, matching.RecordInitialMatches(fresh, len(matches), h)); err != nil {
		return fmt.Errorf("write initial match count: %w", err)
	}

	s.deliver(res.EventID, fresh.Email, "submitter confirmation", func() error {
		return s.notifier.SubmitterConfirmation(ctx, fresh, matches)
	})

	if err := h.RequireOptIn(); err != nil {
		logger.Error("subscriber alerts skipped", "event_id", res.EventID, "row", res.Row,
			"opt_in_label", s.optIn, "error", err)
		return err
	}

	for _, sub := range s.rules.Subscribers(all, fresh, now) {
		table := s.alertMatches(all, sub, fresh, now)
		if !s.deliver(res.EventID, sub.Email, "subscriber alert", func() error {
			return s.notifier.SubscriberAlert(ctx, sub, table, fresh)
		}) {
			continue
		}
		if err := s.apply(ctx, []matching.Mutation{matching.IncrementNotifications(sub)}, h); err != nil {
			return err
		}
		res.Alerted++
	}

	logger.Info("submission processed",
		"event_id", res.EventID,
		"row", res.Row,
		"action", string(fresh.Action),
		"item", fresh.Item(),
		"matches", res.Matches,
		"alerted", res.Alerted,
		"resynced", res.Resynced,
	)
	return nil
}

// alertMatches is the table a subscriber receives: their existing matches,
// then the new listing last.
func (s *Service) alertMatches(all []domain.Listing, sub, fresh domain.Listing, now time.Time) []domain.Listing {
	var out []domain.Listing
	for _, m := range s.rules.MatchesFor(all, sub, now) {
		if m.Row != fresh.Row {
			out = append(out, m)
		}
	}
	return append(out, fresh)
}

func (s *Service) handleOptOut(ctx context.Context, res *EventResult) error {
	og, err := s.repo.Snapshot(ctx, s.sheets.OptOut)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", s.sheets.OptOut, err)
	}
	if res.Row < 1 || res.Row > og.Len() {
		return fmt.Errorf("%s row %d: %w", s.sheets.OptOut, res.Row, ErrRowNotFound)
	}
	req := domain.OptOutRequestFromValues(res.Row, og.Rows[res.Row-1], s.loc)

	grid, h, err := s.mainSheet(ctx)
	if err != nil {
		return err
	}

	outcome := matching.ApplyOptOutEvent(matching.ParseListings(grid, h, s.loc), req)
	if err := s.apply(ctx, outcome.Mutations, h); err != nil {
		return err
	}
	res.FoundOwn = outcome.FoundOwn
	res.Retired = len(outcome.Mutations)

	if p := outcome.PartnerNotice; p != nil {
		s.deliver(res.EventID, p.Email, "partner notice", func() error {
			return s.notifier.PartnerOptOut(ctx, *p, req)
		})
		res.PartnerNotified = true
	}

	s.deliver(res.EventID, req.Email, "opt-out confirmation", func() error {
		return s.notifier.OptOutConfirmation(ctx, req, outcome.FoundOwn)
	})

	logger.Info("opt-out processed",
		"event_id", res.EventID,
		"row", res.Row,
		"requester", req.Email,
		"item", req.Item,
		"found", res.FoundOwn,
		"retired", res.Retired,
		"partner_notified", res.PartnerNotified,
	)
	return nil
}

// SweepExpirations warns every listing that reaches the warning age today,
// then archives a snapshot of both sheets when an archiver is configured.
func (s *Service) SweepExpirations(ctx context.Context) (*SweepResult, error) {
	res := &SweepResult{EventID: uuid.New().String()}
	err := s.locked(ctx, func(ctx context.Context) error {
		grid, h, err := s.mainSheet(ctx)
		if err != nil {
			return err
		}
		if err := h.RequireOptIn(); err != nil {
			logger.Error("expiration sweep skipped", "event_id", res.EventID,
				"opt_in_label", s.optIn, "error", err)
			return err
		}

		all := matching.ParseListings(grid, h, s.loc)
		res.Scanned = len(all)
		for _, l := range s.rules.DueForWarning(all, s.now()) {
			s.deliver(res.EventID, l.Email, "expiration warning", func() error {
				return s.notifier.ExpirationWarning(ctx, l)
			})
			res.Warned++
		}

		if s.archiver != nil {
			res.Archive = s.archive(ctx, res.EventID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("expiration sweep complete",
		"event_id", res.EventID,
		"scanned", res.Scanned,
		"warned", res.Warned,
		"archive", res.Archive,
	)
	return res, nil
}

func (s *Service) archive(ctx context.Context, eventID string) string {
	sheets := make(map[string]domain.Grid, 2)
	for _, name := range []string{s.sheets.Main, s.sheets.OptOut} {
		g, err := s.repo.Snapshot(ctx, name)
		if err != nil {
			logger.Warn("archive snapshot failed", "event_id", eventID, "sheet", name, "error", err)
			return ""
		}
		sheets[name] = g
	}
	loc, err := s.archiver.Archive(ctx, s.now(), sheets)
	if err != nil {
		logger.Warn("archive failed", "event_id", eventID, "error", err)
		return ""
	}
	return loc
}

// Resync reconciles the whole opt-out sheet against the main sheet outside
// of a submission. It returns the rows whose tracking fields changed.
func (s *Service) Resync(ctx context.Context) (*ResyncResult, error) {
	res := &ResyncResult{EventID: uuid.New().String()}
	err := s.locked(ctx, func(ctx context.Context) error {
		grid, h, err := s.mainSheet(ctx)
		if err != nil {
			return err
		}
		muts, err := s.resync(ctx, grid, h)
		if err != nil {
			return err
		}
		for _, m := range muts {
			res.Rows = append(res.Rows, m.Row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("opt-out resync complete", "event_id", res.EventID, "changed", len(res.Rows))
	return res, nil
}

// EnsureSchema adds any missing tracking columns to the main sheet and
// returns the resolved field handles.
func (s *Service) EnsureSchema(ctx context.Context) (matching.FieldHandles, error) {
	var h matching.FieldHandles
	err := s.locked(ctx, func(ctx context.Context) error {
		var err error
		_, h, err = s.mainSheet(ctx)
		return err
	})
	return h, err
}

func (s *Service) resync(ctx context.Context, grid domain.Grid, h matching.FieldHandles) ([]matching.Mutation, error) {
	og, err := s.repo.Snapshot(ctx, s.sheets.OptOut)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.sheets.OptOut, err)
	}
	muts := matching.ResyncOptOuts(matching.ParseListings(grid, h, s.loc), matching.ParseOptOutRequests(og, s.loc))
	if err := s.apply(ctx, muts, h); err != nil {
		return nil, err
	}
	return muts, nil
}

// mainSheet snapshots the main sheet and makes sure its tracking columns
// exist. The returned grid predates any appended columns; cells past the end
// of a row read as empty, so parsing it with the returned handles is safe.
func (s *Service) mainSheet(ctx context.Context) (domain.Grid, matching.FieldHandles, error) {
	grid, err := s.repo.Snapshot(ctx, s.sheets.Main)
	if err != nil {
		return grid, matching.FieldHandles{}, fmt.Errorf("snapshot %s: %w", s.sheets.Main, err)
	}
	h, err := matching.EnsureTrackingFields(ctx, s.repo, s.sheets.Main, grid.Header, s.optIn)
	if err != nil {
		return grid, h, err
	}
	return grid, h, nil
}

func (s *Service) apply(ctx context.Context, muts []matching.Mutation, h matching.FieldHandles) error {
	for _, m := range muts {
		for _, u := range m.Cells(h) {
			if err := s.repo.WriteCell(ctx, s.sheets.Main, u); err != nil {
				return fmt.Errorf("apply mutation to row %d: %w", m.Row, err)
			}
		}
	}
	return nil
}

// deliver runs one notification. A failure is logged and swallowed so the
// remaining fan-out continues.
// deliver reports whether a send was attempted. Failures are logged only.
func (s *Service) deliver(eventID, to, what string, send func() error) bool {
	if strings.TrimSpace(to) == "" {
		logger.Warn("notification skipped: no recipient", "event_id", eventID, "message", what)
		return false
	}
	if err := send(); err != nil {
		logger.Warn("notification failed", "event_id", eventID, "message", what, "recipient", to, "error", err)
	}
	return true
}

func (s *Service) locked(ctx context.Context, fn func(ctx context.Context) error) error {
	return distlock.Do(ctx, s.locks(lockKey), s.retry, fn)
}

func blank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
