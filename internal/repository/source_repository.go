package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-priority/internal/domain"
)

// RecordSource loads the raw upstream datasets.
type RecordSource interface {
	FetchTickets(ctx context.Context) ([]domain.RawTicket, error)
	FetchActions(ctx context.Context) ([]domain.RawAction, error)
	FetchEmployeeMovements(ctx context.Context) ([]domain.RawQuestionResult, error)
}

type sourceRepository struct {
	pool  *pgxpool.Pool
	limit int
}

// NewSourceRepository reads the spot_* views of the ITSM replica. limit caps
// each dataset; zero means no cap.
func NewSourceRepository(pool *pgxpool.Pool, limit int) RecordSource {
	return &sourceRepository{pool: pool, limit: limit}
}

func (r *sourceRepository) FetchTickets(ctx context.Context) ([]domain.RawTicket, error) {
	query := `
        SELECT request_id, parent_request_id, rfc_number, creation_date, submit_date, end_date,
               max_resolution_date, requestor_id, requestor_last_name, recipient_id, recipient_last_name,
               recipient_location, sd_catalog_id, catalog_name, status_id, status_fr, comment, description,
               urgency_id, urgency_fr, ci_id, ci_name
        FROM spot_open_requests
        ORDER BY request_id` + r.limitClause()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	return pgx.CollectRows(rows, scanRawTicket)
}

func (r *sourceRepository) FetchActions(ctx context.Context) ([]domain.RawAction, error) {
	query := `
        SELECT action_id, request_id, rfc_number, action_type_id, action_label, start_date, end_date,
               done_by_name, group_name, description
        FROM spot_request_actions
        ORDER BY request_id, action_id` + r.limitClause()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	return pgx.CollectRows(rows, scanRawAction)
}

func (r *sourceRepository) FetchEmployeeMovements(ctx context.Context) ([]domain.RawQuestionResult, error) {
	query := `
        SELECT request_id, rfc_number, sd_catalog_id, question_id, result, result_string_fr
        FROM spot_movement_answers
        ORDER BY request_id, question_id` + r.limitClause()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query employee movements: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RawQuestionResult, error) {
		var q domain.RawQuestionResult
		err := row.Scan(&q.RequestID, &q.RFCNumber, &q.CatalogID, &q.QuestionID, &q.Result, &q.ResultStringFR)
		return q, err
	})
}

func (r *sourceRepository) limitClause() string {
	if r.limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", r.limit)
}

func scanRawTicket(row pgx.CollectableRow) (domain.RawTicket, error) {
	var t domain.RawTicket
	err := row.Scan(
		&t.RequestID,
		&t.ParentRequestID,
		&t.RFCNumber,
		&t.CreationDate,
		&t.SubmitDate,
		&t.EndDate,
		&t.MaxResolutionDate,
		&t.RequestorID,
		&t.RequestorLastName,
		&t.RecipientID,
		&t.RecipientLastName,
		&t.RecipientLocation,
		&t.CatalogID,
		&t.CatalogName,
		&t.StatusID,
		&t.StatusFR,
		&t.Comment,
		&t.Description,
		&t.UrgencyID,
		&t.UrgencyFR,
		&t.CIID,
		&t.CIName,
	)
	return t, err
}

func scanRawAction(row pgx.CollectableRow) (domain.RawAction, error) {
	var a domain.RawAction
	err := row.Scan(
		&a.ActionID,
		&a.RequestID,
		&a.RFCNumber,
		&a.ActionTypeID,
		&a.ActionLabel,
		&a.StartDate,
		&a.EndDate,
		&a.DoneByName,
		&a.GroupName,
		&a.Description,
	)
	return a, err
}
