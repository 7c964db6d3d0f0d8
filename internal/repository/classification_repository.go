package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-priority/internal/domain"
)

// ErrUnknownInterventionType is returned when an update names a type that is
// not in the intervention_type table.
var ErrUnknownInterventionType = errors.New("unknown intervention type")

// InterventionTypeInfo is one row of the intervention_type table.
type InterventionTypeInfo struct {
	ID      domain.InterventionType
	Code    string
	LabelFR string
}

// ClassificationRepository reads and writes the intervention type assigned
// to each request.
type ClassificationRepository interface {
	Classify(ctx context.Context, keys []domain.TicketKey) (map[int64]domain.Classification, error)
	UpdateInterventionType(ctx context.Context, key domain.TicketKey, typeCode string) (domain.Classification, error)
	ListInterventionTypes(ctx context.Context) ([]InterventionTypeInfo, error)
}

type classificationRepository struct {
	pool *pgxpool.Pool
}

// NewClassificationRepository instantiates repository.
func NewClassificationRepository(pool *pgxpool.Pool) ClassificationRepository {
	return &classificationRepository{pool: pool}
}

// Classify looks requests up by id. Requests without a row are absent from
// the result.
func (r *classificationRepository) Classify(ctx context.Context, keys []domain.TicketKey) (map[int64]domain.Classification, error) {
	out := make(map[int64]domain.Classification, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k.RequestID)
	}

	const query = `
        SELECT rc.request_id, rc.intervention_type, it.label_fr
        FROM request_classification rc
        JOIN intervention_type it ON it.id = rc.intervention_type
        WHERE rc.request_id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query classification: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id int64
			c  domain.Classification
		)
		if err := rows.Scan(&id, &c.InterventionType, &c.Category); err != nil {
			return nil, err
		}
		out[id] = c
	}
	return out, rows.Err()
}

// UpdateInterventionType assigns the type with code (or numeric id) to a
// request, creating the classification row when missing.
func (r *classificationRepository) UpdateInterventionType(ctx context.Context, key domain.TicketKey, typeCode string) (domain.Classification, error) {
	const query = `
        WITH target AS (
            SELECT id, label_fr FROM intervention_type
            WHERE upper(code) = upper($3) OR id::text = $3
            LIMIT 1
        )
        INSERT INTO request_classification (request_id, rfc_number, intervention_type)
        SELECT $1, NULLIF($2, ''), id FROM target
        ON CONFLICT (request_id) DO UPDATE
            SET intervention_type = EXCLUDED.intervention_type,
                rfc_number = COALESCE(EXCLUDED.rfc_number, request_classification.rfc_number),
                updated_at = NOW()
        RETURNING intervention_type, (SELECT label_fr FROM target)`

	var c domain.Classification
	err := r.pool.QueryRow(ctx, query, key.RequestID, key.RFCNumber, typeCode).Scan(&c.InterventionType, &c.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Classification{}, ErrUnknownInterventionType
	}
	if err != nil {
		return domain.Classification{}, err
	}
	return c, nil
}

func (r *classificationRepository) ListInterventionTypes(ctx context.Context) ([]InterventionTypeInfo, error) {
	const query = `SELECT id, code, label_fr FROM intervention_type ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (InterventionTypeInfo, error) {
		var it InterventionTypeInfo
		err := row.Scan(&it.ID, &it.Code, &it.LabelFR)
		return it, err
	})
}
