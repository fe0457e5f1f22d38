package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
)

const defaultListLimit = 100

type journalRow struct {
	ID             string          `db:"id"`
	IdempotencyKey string          `db:"idempotency_key"`
	Customer       string          `db:"customer"`
	LinesJSON      string          `db:"lines_json"`
	Total          decimal.Decimal `db:"total"`
	Outcome        string          `db:"outcome"`
	Error          string          `db:"error"`
	CreatedAt      int64           `db:"created_at"`
}

type journalLine struct {
	Product  string          `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Unit     string          `json:"unit"`
}

type journalRepository struct {
	db *sqlx.DB
}

// NewJournalRepository создаёт SQL-реализацию SubmissionJournal.
func NewJournalRepository(store *Store) domain.SubmissionJournal {
	return &journalRepository{db: store.DB()}
}

func (r *journalRepository) Append(record domain.SubmissionRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row, err := toJournalRow(record)
	if err != nil {
		return err
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO submission_journal (
			id, idempotency_key, customer, lines_json, total, outcome, error, created_at
		) VALUES (
			:id, :idempotency_key, :customer, :lines_json, :total, :outcome, :error, :created_at
		)
	`, row)
	if err != nil {
		return fmt.Errorf("append submission record: %w", err)
	}
	return nil
}

func (r *journalRepository) List(limit int) ([]domain.SubmissionRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = defaultListLimit
	}

	var rows []journalRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, idempotency_key, customer, lines_json, total, outcome, error, created_at
		FROM submission_journal
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`), limit); err != nil {
		return nil, fmt.Errorf("list submission records: %w", err)
	}

	out := make([]domain.SubmissionRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func (r *journalRepository) DeleteBefore(before time.Time, limit int) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = defaultListLimit
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(`
		SELECT id
		FROM submission_journal
		WHERE created_at < ?
		ORDER BY created_at
		LIMIT ?
	`), before.UTC().UnixMilli(), limit); err != nil {
		return 0, fmt.Errorf("select expired submission records: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`DELETE FROM submission_journal WHERE id IN (?)`, ids)
	if err != nil {
		return 0, fmt.Errorf("build delete query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired submission records: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected for journal cleanup: %w", err)
	}
	return int(affected), nil
}

func toJournalRow(record domain.SubmissionRecord) (journalRow, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	lines := make([]journalLine, len(record.Lines))
	for i, line := range record.Lines {
		lines[i] = journalLine{Product: line.ProductName, Quantity: line.Quantity, Price: line.PricePerUnit, Unit: line.Unit}
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return journalRow{}, fmt.Errorf("marshal submission lines: %w", err)
	}

	return journalRow{
		ID:             record.ID,
		IdempotencyKey: record.IdempotencyKey,
		Customer:       record.Customer,
		LinesJSON:      string(payload),
		Total:          record.Total,
		Outcome:        string(record.Outcome),
		Error:          record.Error,
		CreatedAt:      record.CreatedAt.UTC().UnixMilli(),
	}, nil
}

func (row journalRow) toDomain() (domain.SubmissionRecord, error) {
	var lines []journalLine
	if err := json.Unmarshal([]byte(row.LinesJSON), &lines); err != nil {
		return domain.SubmissionRecord{}, fmt.Errorf("unmarshal submission lines %s: %w", row.ID, err)
	}

	cartLines := make([]domain.CartLine, len(lines))
	for i, line := range lines {
		cartLines[i] = domain.CartLine{ProductName: line.Product, Quantity: line.Quantity, PricePerUnit: line.Price, Unit: line.Unit}
	}

	return domain.SubmissionRecord{
		ID:             row.ID,
		IdempotencyKey: row.IdempotencyKey,
		Customer:       row.Customer,
		Lines:          cartLines,
		Total:          row.Total,
		Outcome:        domain.SubmissionOutcome(row.Outcome),
		Error:          row.Error,
		CreatedAt:      time.UnixMilli(row.CreatedAt).UTC(),
	}, nil
}

var _ domain.SubmissionJournal = (*journalRepository)(nil)
