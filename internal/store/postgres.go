package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"github.com/dealcraft/dealcalc/pkg/rates"
)

// PostgresStore is a RateStore backed by a Postgres rate_table relation,
// for dealerships that sync lender rate sheets into a shared database.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects to Postgres using the given connection string.
func NewPostgresStore(ctx context.Context, connString string, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Lenders lists the distinct lender IDs present in the rate table.
func (s *PostgresStore) Lenders(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT lender_id FROM rate_table ORDER BY lender_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lenders: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan lender id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RateTable returns every rate-sheet entry for one lender.
func (s *PostgresStore) RateTable(ctx context.Context, lenderID string) ([]rates.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT lender_id, lender_name, vehicle_condition, term_min, term_max,
		       credit_score_min, credit_score_max, apr_percent, note, effective_date
		FROM rate_table
		WHERE lender_id = $1
		ORDER BY effective_date DESC, apr_percent ASC`,
		lenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate table for %s: %w", lenderID, err)
	}
	defer rows.Close()

	var entries []rates.Entry
	for rows.Next() {
		var entry rates.Entry
		var effective time.Time
		if err := rows.Scan(
			&entry.LenderID, &entry.LenderName, &entry.VehicleCondition,
			&entry.TermMin, &entry.TermMax,
			&entry.CreditScoreMin, &entry.CreditScoreMax,
			&entry.APRPercent, &entry.Note, &effective,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rate entry: %w", err)
		}
		entry.EffectiveDate = civil.DateOf(effective)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug(fmt.Sprintf("loaded %d rate entries for lender %s", len(entries), lenderID),
		zap.String("op", "store.RateTable"),
	)
	return entries, nil
}

// UpsertEntry inserts or refreshes one rate-sheet entry. The rate table is
// keyed by lender, condition, term range, and credit band; a re-crawled
// sheet replaces the APR and effective date in place.
func (s *PostgresStore) UpsertEntry(ctx context.Context, entry rates.Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rate_table (lender_id, lender_name, vehicle_condition, term_min, term_max,
		                        credit_score_min, credit_score_max, apr_percent, note, effective_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (lender_id, vehicle_condition, term_min, term_max, credit_score_min, credit_score_max)
		DO UPDATE SET apr_percent = EXCLUDED.apr_percent,
		              note = EXCLUDED.note,
		              effective_date = EXCLUDED.effective_date`,
		entry.LenderID, entry.LenderName, entry.VehicleCondition,
		entry.TermMin, entry.TermMax,
		entry.CreditScoreMin, entry.CreditScoreMax,
		entry.APRPercent, entry.Note, entry.EffectiveDate.In(time.UTC),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rate entry for %s: %w", entry.LenderID, err)
	}
	return nil
}
