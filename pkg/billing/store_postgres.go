package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentcoach/billing/pkg/pg"
)

const (
	pgEmailConstraint = "subscription_records_user_email_key"

	recordColumns = `subscription_id, user_email, tier, customer_id, plan_name, plan_description,
		plan_billing_period, plan_price, status, current_period_end, cancel_at_period_end, created_at`
)

// pgxQuerier is satisfied by *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps records in the subscription_records table created by
// Migrations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("billing: postgres pool is required")
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, rec Record) error {
	rec.UserEmail = NormalizeEmail(rec.UserEmail)
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return insertRecord(ctx, s.pool, rec)
}

func (s *PostgresStore) Replace(ctx context.Context, rec Record) (Record, error) {
	rec.UserEmail = NormalizeEmail(rec.UserEmail)
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var prev Record
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		prev, err = scanRecord(tx.QueryRow(ctx,
			`SELECT `+recordColumns+` FROM subscription_records WHERE user_email = $1 FOR UPDATE`, rec.UserEmail))
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM subscription_records WHERE subscription_id = $1`, prev.SubscriptionID); err != nil {
			return fmt.Errorf("delete superseded record: %w", err)
		}
		return insertRecord(ctx, tx, rec)
	})
	if err != nil {
		return Record{}, err
	}
	return prev, nil
}

func (s *PostgresStore) GetBySubscriptionID(ctx context.Context, subscriptionID string) (Record, error) {
	return scanRecord(s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM subscription_records WHERE subscription_id = $1`, subscriptionID))
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (Record, error) {
	return scanRecord(s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM subscription_records WHERE user_email = $1`, NormalizeEmail(email)))
}

func (s *PostgresStore) ListByEmail(ctx context.Context, email string) ([]Record, error) {
	return s.list(ctx, `SELECT `+recordColumns+` FROM subscription_records WHERE user_email = $1`, NormalizeEmail(email))
}

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	return s.list(ctx, `SELECT `+recordColumns+` FROM subscription_records ORDER BY created_at DESC`)
}

func (s *PostgresStore) Update(ctx context.Context, subscriptionID string, u SubscriptionUpdate) (Record, error) {
	var rec Record
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		rec, err = scanRecord(tx.QueryRow(ctx,
			`SELECT `+recordColumns+` FROM subscription_records WHERE subscription_id = $1 FOR UPDATE`, subscriptionID))
		if err != nil {
			return err
		}
		u.apply(&rec)
		if err := rec.Validate(); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE subscription_records SET status = $2, current_period_end = $3, cancel_at_period_end = $4
			 WHERE subscription_id = $1`,
			subscriptionID, rec.Status, rec.CurrentPeriodEnd, rec.CancelAtPeriodEnd)
		if err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, subscriptionID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM subscription_records WHERE subscription_id = $1`, subscriptionID)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return pg.Healthcheck(s.pool)(ctx)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

func insertRecord(ctx context.Context, q pgxQuerier, rec Record) error {
	_, err := q.Exec(ctx,
		`INSERT INTO subscription_records (`+recordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.SubscriptionID, rec.UserEmail, rec.Tier, rec.CustomerID,
		rec.PlanDetails.Name, rec.PlanDetails.Description, rec.PlanDetails.BillingPeriod, rec.PlanDetails.Price,
		rec.Status, rec.CurrentPeriodEnd, rec.CancelAtPeriodEnd, rec.CreatedAt,
	)
	if constraint, ok := pg.UniqueViolation(err); ok {
		if constraint == pgEmailConstraint {
			return ErrEmailTaken
		}
		return ErrDuplicateSubscription
	}
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.SubscriptionID, &rec.UserEmail, &rec.Tier, &rec.CustomerID,
		&rec.PlanDetails.Name, &rec.PlanDetails.Description, &rec.PlanDetails.BillingPeriod, &rec.PlanDetails.Price,
		&rec.Status, &rec.CurrentPeriodEnd, &rec.CancelAtPeriodEnd, &rec.CreatedAt,
	)
	if pg.IsNotFoundError(err) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan record: %w", err)
	}
	rec.CurrentPeriodEnd = rec.CurrentPeriodEnd.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}
