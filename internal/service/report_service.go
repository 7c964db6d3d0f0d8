package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/ticket-priority/internal/cache"
	"github.com/spec-kit/ticket-priority/internal/domain"
	"github.com/spec-kit/ticket-priority/internal/pipeline"
	"github.com/spec-kit/ticket-priority/internal/repository"
	"github.com/spec-kit/ticket-priority/internal/scoring"
	"github.com/spec-kit/ticket-priority/internal/selector"
	apperrors "github.com/spec-kit/ticket-priority/pkg/util/errorutil"
)

// Dataset names shared with the cache coordinator.
const (
	DatasetTickets           = "tickets"
	DatasetActions           = "actions"
	DatasetEmployeeMovements = "employee_movements"
)

// ReportDependencies bundles what the report service needs. Lookup defaults
// to Classifications when nil; without either every ticket is unclassified.
type ReportDependencies struct {
	Source          repository.RecordSource
	Lookup          pipeline.ClassificationLookup
	Classifications repository.ClassificationRepository
	Coordinator     *cache.Coordinator
	Normalizer      *pipeline.Normalizer
	Engine          *scoring.Engine
	VIP             selector.NameSet
	Sensitive       selector.NameSet
	Logger          *zap.Logger
	Now             func() time.Time
}

// ReportService runs the fetch, enrich and score pipeline and renders the
// dashboard reports.
type ReportService struct {
	source          repository.RecordSource
	lookup          pipeline.ClassificationLookup
	classifications repository.ClassificationRepository
	coordinator     *cache.Coordinator
	normalizer      *pipeline.Normalizer
	engine          *scoring.Engine
	vip             selector.NameSet
	sensitive       selector.NameSet
	logger          *zap.Logger
	now             func() time.Time
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = pipeline.NewNormalizer(time.UTC)
	}
	engine := deps.Engine
	if engine == nil {
		engine = scoring.NewEngine(deps.VIP)
	}
	lookup := deps.Lookup
	if lookup == nil && deps.Classifications != nil {
		lookup = deps.Classifications
	}
	return &ReportService{
		source:          deps.Source,
		lookup:          lookup,
		classifications: deps.Classifications,
		coordinator:     deps.Coordinator,
		normalizer:      normalizer,
		engine:          engine,
		vip:             deps.VIP,
		sensitive:       deps.Sensitive,
		logger:          logger,
		now:             now,
	}
}

// Snapshot is one scored batch with the actions it was computed from.
type Snapshot struct {
	Tickets        []domain.ScoredTicket
	Actions        []domain.Action
	Now            time.Time
	TicketsFetchID string
	ActionsFetchID string
}

// Load fetches both datasets through the coordinator, normalizes, enriches
// and scores them. A non-empty techFilter keeps only the tickets of matching
// technicians. Tickets come back sorted by points, highest first.
func (s *ReportService) Load(ctx context.Context, techFilter string) (*Snapshot, error) {
	var (
		rawTickets []domain.RawTicket
		rawActions []domain.RawAction
		snap       Snapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawTickets, snap.TicketsFetchID, err = cache.Fetch(gctx, s.coordinator, DatasetTickets, s.source.FetchTickets)
		return err
	})
	g.Go(func() error {
		var err error
		rawActions, snap.ActionsFetchID, err = cache.Fetch(gctx, s.coordinator, DatasetActions, s.source.FetchActions)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now().In(s.normalizer.Location())
	tickets := s.normalizer.ParseTickets(rawTickets)
	actions := s.normalizer.ParseActions(rawActions)

	features := pipeline.NewFeatureEngineer(s.lookup, func() time.Time { return now })
	enriched, err := features.Enrich(ctx, tickets, actions)
	if err != nil {
		return nil, err
	}
	enriched = selector.ApplyAppointments(enriched, actions, now, s.normalizer.Location())
	enriched = pipeline.ApplyTechnician(enriched, actions, techFilter)

	snap.Tickets = s.engine.Score(enriched)
	SortByPoints(snap.Tickets)
	snap.Actions = actions
	snap.Now = now

	s.logger.Debug("snapshot scored",
		zap.Int("tickets", len(snap.Tickets)),
		zap.Int("actions", len(actions)),
		zap.String("tickets_fetch_id", snap.TicketsFetchID),
		zap.String("actions_fetch_id", snap.ActionsFetchID),
		zap.String("tech_filter", techFilter))
	return &snap, nil
}

// Report renders one catalogue entry in the requested view.
func (s *ReportService) Report(ctx context.Context, q ReportQuery) (ReportResult, error) {
	def, err := q.validate()
	if err != nil {
		return ReportResult{}, err
	}
	snap, err := s.Load(ctx, q.TechFilter)
	if err != nil {
		return ReportResult{}, err
	}
	rows, err := def.selectRows(s, snap, q)
	if err != nil {
		return ReportResult{}, err
	}
	return renderReport(q, rows), nil
}

// TechnicianTable sums tickets and points per technician over the whole
// flow.
func (s *ReportService) TechnicianTable(ctx context.Context) (Table[TechnicianRow], error) {
	snap, err := s.Load(ctx, "")
	if err != nil {
		return Table[TechnicianRow]{}, err
	}
	return NewTechnicianTable(snap.Tickets), nil
}

// ExpirationTable lists the next SLA deadlines of a flow.
func (s *ReportService) ExpirationTable(ctx context.Context, flow selector.Flow, techFilter string) (Table[ExpirationRow], error) {
	if !flow.Valid() {
		return Table[ExpirationRow]{}, invalidFlow(flow)
	}
	snap, err := s.Load(ctx, techFilter)
	if err != nil {
		return Table[ExpirationRow]{}, err
	}
	return NewExpirationTable(selector.TicketFlow(snap.Tickets, flow, false), snap.Now), nil
}

// SuspendedMailTable lists the waiting tickets due another contact.
func (s *ReportService) SuspendedMailTable(ctx context.Context, techFilter string) (Table[ExpirationRow], error) {
	snap, err := s.Load(ctx, techFilter)
	if err != nil {
		return Table[ExpirationRow]{}, err
	}
	rows := selector.SuspendedUnansweredByMail(snap.Tickets, snap.Actions, snap.Now)
	return NewSuspendedMailTable(rows), nil
}

// RDVCalendar renders the appointment calendar.
func (s *ReportService) RDVCalendar(ctx context.Context) ([]CalendarEvent, error) {
	snap, err := s.Load(ctx, "")
	if err != nil {
		return nil, err
	}
	return NewRDVCalendar(snap.Tickets, s.normalizer.Location()), nil
}

// EmployeeMovementCalendar renders arrivals and departures from the catalog
// form answers.
func (s *ReportService) EmployeeMovementCalendar(ctx context.Context) ([]CalendarEvent, error) {
	rows, _, err := cache.Fetch(ctx, s.coordinator, DatasetEmployeeMovements, s.source.FetchEmployeeMovements)
	if err != nil {
		return nil, err
	}
	return NewEmployeeMovementCalendar(pipeline.PivotEmployeeMovements(rows)), nil
}

// UpdateClassification assigns an intervention type to a request.
// Classifications are read on every load, so the cached datasets stay valid.
func (s *ReportService) UpdateClassification(ctx context.Context, key domain.TicketKey, typeCode string) (domain.Classification, error) {
	if s.classifications == nil {
		return domain.Classification{}, errClassificationUnavailable()
	}
	typeCode = strings.TrimSpace(typeCode)
	if key.RequestID <= 0 || typeCode == "" {
		return domain.Classification{}, apperrors.NewValidationError("request id and type are required", nil)
	}
	c, err := s.classifications.UpdateInterventionType(ctx, key, typeCode)
	if errors.Is(err, repository.ErrUnknownInterventionType) {
		return domain.Classification{}, apperrors.NewValidationError("unknown intervention type", map[string]any{"type": typeCode})
	}
	if err != nil {
		return domain.Classification{}, err
	}
	s.logger.Info("request classified",
		zap.Int64("request_id", key.RequestID),
		zap.String("rfc_number", key.RFCNumber),
		zap.Int("intervention_type", int(c.InterventionType)))
	return c, nil
}

// InterventionTypes lists the known intervention types.
func (s *ReportService) InterventionTypes(ctx context.Context) ([]repository.InterventionTypeInfo, error) {
	if s.classifications == nil {
		return nil, errClassificationUnavailable()
	}
	return s.classifications.ListInterventionTypes(ctx)
}

// Refresh drops the cached datasets so the next load refetches them. No
// names means every dataset.
func (s *ReportService) Refresh(ctx context.Context, datasets ...string) ([]string, error) {
	if len(datasets) == 0 {
		datasets = []string{DatasetTickets, DatasetActions, DatasetEmployeeMovements}
	}
	for _, d := range datasets {
		switch d {
		case DatasetTickets, DatasetActions, DatasetEmployeeMovements:
		default:
			return nil, apperrors.NewNotFound("dataset", map[string]any{"dataset": d})
		}
	}
	for _, d := range datasets {
		if err := s.coordinator.Invalidate(ctx, d); err != nil {
			return nil, err
		}
	}
	s.logger.Info("datasets invalidated", zap.Strings("datasets", datasets))
	return datasets, nil
}

func errClassificationUnavailable() error {
	return apperrors.NewDomainError("CLASSIFICATION_UNAVAILABLE", "classification store not configured", http.StatusServiceUnavailable, nil)
}

func invalidFlow(flow selector.Flow) error {
	return apperrors.NewValidationError("unknown intervention type filter", map[string]any{"inter_type": string(flow)})
}
