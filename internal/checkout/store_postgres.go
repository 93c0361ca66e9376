package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type PostgresStore struct {
	pool DBPool
}

func NewPostgresStore(pool DBPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const sagaColumns = `id::text, reservation_id, user_id, national_id, source_account, merchant_account,
	amount::text, state, transaction_id, transaction_at, payment_id, invoice_id, invoice_uri,
	compensation_id, compensation_attempts, last_error, steps, created_at, updated_at,
	claimed_by, claimed_until, version`

func (p *PostgresStore) Create(ctx context.Context, s *Saga) error {
	steps, err := json.Marshal(s.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO checkout_sagas (id, reservation_id, user_id, national_id, source_account,
			merchant_account, amount, state, steps, created_at, updated_at, claimed_by, claimed_until, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10, $11, $12, $13)
	`, s.ID, s.ReservationID, s.UserID, s.NationalID, s.SourceAccount,
		s.MerchantAccount, s.Amount.String(), string(s.State), string(steps), s.CreatedAt,
		s.ClaimedBy, s.ClaimedUntil, s.Version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrInProgress
		}
		return fmt.Errorf("insert saga: %w", err)
	}
	return nil
}

func (p *PostgresStore) Save(ctx context.Context, s *Saga, events ...OutboxEvent) error {
	steps, err := json.Marshal(s.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE checkout_sagas
		SET state=$2, transaction_id=$3, transaction_at=$4, payment_id=$5, invoice_id=$6,
			invoice_uri=$7, compensation_id=$8, compensation_attempts=$9, last_error=$10,
			steps=$11, updated_at=$12, claimed_by=$13, claimed_until=$14, version=version+1
		WHERE id=$1 AND version=$15
	`, s.ID, string(s.State), s.TransactionID, s.TransactionAt, s.PaymentID, s.InvoiceID,
		s.InvoiceURI, s.CompensationID, s.CompensationAttempts, s.LastError,
		string(steps), s.UpdatedAt, s.ClaimedBy, s.ClaimedUntil, s.Version)
	if err != nil {
		return fmt.Errorf("update saga: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var one int
		if err := tx.QueryRow(ctx, `SELECT 1 FROM checkout_sagas WHERE id=$1`, s.ID).Scan(&one); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("check saga: %w", err)
		}
		return ErrClaimed
	}

	for _, e := range events {
		if _, err := tx.Exec(ctx, `
			INSERT INTO checkout_outbox (id, saga_id, routing_key, body, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, e.ID, e.SagaID, e.RoutingKey, string(e.Body), e.CreatedAt); err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.Version++
	return nil
}

func (p *PostgresStore) Claim(ctx context.Context, s *Saga, owner string, until, now time.Time) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE checkout_sagas
		SET claimed_by=$2, claimed_until=$3, version=version+1
		WHERE id=$1 AND version=$4
		  AND (claimed_by='' OR claimed_by=$2 OR claimed_until < $5)
	`, s.ID, owner, until, s.Version, now)
	if err != nil {
		return fmt.Errorf("claim saga: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClaimed
	}
	s.ClaimedBy = owner
	s.ClaimedUntil = until
	s.Version++
	return nil
}

func (p *PostgresStore) Latest(ctx context.Context, reservationID int) (*Saga, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+sagaColumns+`
		FROM checkout_sagas
		WHERE reservation_id=$1
		ORDER BY created_at DESC
		LIMIT 1
	`, reservationID)

	s, err := scanSaga(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (p *PostgresStore) Resumable(ctx context.Context, limit int) ([]*Saga, error) {
	return p.list(ctx, `
		SELECT `+sagaColumns+`
		FROM checkout_sagas
		WHERE state='transferred'
		   OR (state='completed' AND steps @> '[{"status":"failed"}]')
		   OR (state='completed' AND steps @> '[{"status":"pending"}]')
		ORDER BY created_at
		LIMIT NULLIF($1::int, 0)
	`, limit)
}

func (p *PostgresStore) Stale(ctx context.Context, before time.Time, limit int) ([]*Saga, error) {
	return p.list(ctx, `
		SELECT `+sagaColumns+`
		FROM checkout_sagas
		WHERE state='started' AND updated_at < $2
		ORDER BY created_at
		LIMIT NULLIF($1::int, 0)
	`, limit, before)
}

func (p *PostgresStore) list(ctx context.Context, sql string, args ...any) ([]*Saga, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Saga
	for rows.Next() {
		s, err := scanSaga(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSaga(row pgx.Row) (*Saga, error) {
	var (
		s      Saga
		id     string
		amount string
		state  string
		steps  []byte
	)
	err := row.Scan(&id, &s.ReservationID, &s.UserID, &s.NationalID, &s.SourceAccount, &s.MerchantAccount,
		&amount, &state, &s.TransactionID, &s.TransactionAt, &s.PaymentID, &s.InvoiceID, &s.InvoiceURI,
		&s.CompensationID, &s.CompensationAttempts, &s.LastError, &steps, &s.CreatedAt, &s.UpdatedAt,
		&s.ClaimedBy, &s.ClaimedUntil, &s.Version)
	if err != nil {
		return nil, err
	}

	s.ID = id
	s.State = State(state)
	if s.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("saga %s amount: %w", id, err)
	}
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &s.Steps); err != nil {
			return nil, fmt.Errorf("saga %s steps: %w", id, err)
		}
	}
	return &s, nil
}

func (p *PostgresStore) Unpublished(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id::text, saga_id::text, routing_key, body::text, created_at
		FROM checkout_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT NULLIF($1::int, 0)
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OutboxEvent
	for rows.Next() {
		var (
			e    OutboxEvent
			body string
		)
		if err := rows.Scan(&e.ID, &e.SagaID, &e.RoutingKey, &body, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Body = []byte(body)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *PostgresStore) MarkPublished(ctx context.Context, id string, at time.Time) error {
	tag, err := p.pool.Exec(ctx, `UPDATE checkout_outbox SET published_at=$2 WHERE id=$1 AND published_at IS NULL`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
