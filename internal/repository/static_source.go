package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spec-kit/ticket-priority/internal/domain"
)

// StaticSource serves fixed datasets. Counters record how many times each
// dataset was fetched.
type StaticSource struct {
	Tickets   []domain.RawTicket
	Actions   []domain.RawAction
	Movements []domain.RawQuestionResult
	Err       error

	mu    sync.Mutex
	calls map[string]int
}

func (s *StaticSource) FetchTickets(_ context.Context) ([]domain.RawTicket, error) {
	s.count("tickets")
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]domain.RawTicket(nil), s.Tickets...), nil
}

func (s *StaticSource) FetchActions(_ context.Context) ([]domain.RawAction, error) {
	s.count("actions")
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]domain.RawAction(nil), s.Actions...), nil
}

func (s *StaticSource) FetchEmployeeMovements(_ context.Context) ([]domain.RawQuestionResult, error) {
	s.count("employee_movements")
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]domain.RawQuestionResult(nil), s.Movements...), nil
}

// Calls returns how many times a dataset was fetched.
func (s *StaticSource) Calls(dataset string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[dataset]
}

func (s *StaticSource) count(dataset string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[dataset]++
}

// CSV export file names read by LoadCSVSource.
const (
	TicketsFile   = "tickets.csv"
	ActionsFile   = "actions.csv"
	MovementsFile = "movements.csv"
)

// LoadCSVSource reads semicolon separated exports of the three source views
// from dir. The header row names the view columns; empty cells are missing
// values. A missing movements file yields an empty dataset.
func LoadCSVSource(dir string) (*StaticSource, error) {
	src := &StaticSource{}

	err := readCSV(filepath.Join(dir, TicketsFile), func(r csvRow) error {
		id, err := r.id("request_id")
		if err != nil {
			return err
		}
		src.Tickets = append(src.Tickets, domain.RawTicket{
			RequestID:         id,
			ParentRequestID:   r.num("parent_request_id"),
			RFCNumber:         r.str("rfc_number"),
			CreationDate:      r.str("creation_date"),
			SubmitDate:        r.str("submit_date"),
			EndDate:           r.str("end_date"),
			MaxResolutionDate: r.str("max_resolution_date"),
			RequestorID:       r.num("requestor_id"),
			RequestorLastName: r.str("requestor_last_name"),
			RecipientID:       r.num("recipient_id"),
			RecipientLastName: r.str("recipient_last_name"),
			RecipientLocation: r.str("recipient_location"),
			CatalogID:         r.num("sd_catalog_id"),
			CatalogName:       r.str("catalog_name"),
			StatusID:          r.num("status_id"),
			StatusFR:          r.str("status_fr"),
			Comment:           r.str("comment"),
			Description:       r.str("description"),
			UrgencyID:         r.num("urgency_id"),
			UrgencyFR:         r.str("urgency_fr"),
			CIID:              r.num("ci_id"),
			CIName:            r.str("ci_name"),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = readCSV(filepath.Join(dir, ActionsFile), func(r csvRow) error {
		actionID, err := r.id("action_id")
		if err != nil {
			return err
		}
		requestID, err := r.id("request_id")
		if err != nil {
			return err
		}
		src.Actions = append(src.Actions, domain.RawAction{
			ActionID:     actionID,
			RequestID:    requestID,
			RFCNumber:    r.str("rfc_number"),
			ActionTypeID: r.num("action_type_id"),
			ActionLabel:  r.str("action_label"),
			StartDate:    r.str("start_date"),
			EndDate:      r.str("end_date"),
			DoneByName:   r.str("done_by_name"),
			GroupName:    r.str("group_name"),
			Description:  r.str("description"),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = readCSV(filepath.Join(dir, MovementsFile), func(r csvRow) error {
		requestID, err := r.id("request_id")
		if err != nil {
			return err
		}
		question, err := r.id("question_id")
		if err != nil {
			return err
		}
		var rfc string
		if v := r.str("rfc_number"); v != nil {
			rfc = *v
		}
		var catalog int64
		if v := r.num("sd_catalog_id"); v != nil {
			catalog = *v
		}
		src.Movements = append(src.Movements, domain.RawQuestionResult{
			RequestID:      requestID,
			RFCNumber:      rfc,
			CatalogID:      catalog,
			QuestionID:     question,
			Result:         r.str("result"),
			ResultStringFR: r.str("result_string_fr"),
		})
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return src, nil
}

type csvRow struct {
	header map[string]int
	fields []string
	line   int
}

func (r csvRow) value(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r csvRow) str(col string) *string {
	v := r.value(col)
	if v == "" {
		return nil
	}
	return &v
}

func (r csvRow) num(col string) *int64 {
	v := r.value(col)
	if v == "" {
		return nil
	}
	// exports written by pandas carry float ids ("12.0")
	v = strings.TrimSuffix(v, ".0")
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

func (r csvRow) id(col string) (int64, error) {
	n := r.num(col)
	if n == nil {
		return 0, fmt.Errorf("line %d: missing or invalid %s", r.line, col)
	}
	return *n, nil
}

func readCSV(path string, fn func(csvRow) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	head, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read %s header: %w", filepath.Base(path), err)
	}
	header := make(map[string]int, len(head))
	for i, h := range head {
		header[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	line := 1
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		if err := fn(csvRow{header: header, fields: fields, line: line}); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
}

// StaticClassifications is an in-memory classification lookup keyed by
// request id.
type StaticClassifications map[int64]domain.Classification

func (s StaticClassifications) Classify(_ context.Context, keys []domain.TicketKey) (map[int64]domain.Classification, error) {
	out := make(map[int64]domain.Classification, len(keys))
	for _, k := range keys {
		if c, ok := s[k.RequestID]; ok {
			out[k.RequestID] = c
		}
	}
	return out, nil
}
