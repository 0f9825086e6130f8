package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"parkpay/internal/models"
)

const (
	pgMaxOpenConns = 5
	pgMaxIdleConns = 2
	pgConnLifetime = time.Hour
	pgPingTimeout  = 5 * time.Second
)

// PostgresStore is the transactional Store variant for sites that moved the
// ledger off the shared file. Schema: parking_sessions(id bigserial, plate
// text, entry_time timestamptz, paid boolean, amount_paid numeric).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a pgx-backed pool and validates the connection.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("ledger: empty DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open postgres: %w", err)
	}

	db.SetMaxOpenConns(pgMaxOpenConns)
	db.SetMaxIdleConns(pgMaxIdleConns)
	db.SetConnMaxLifetime(pgConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pgPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: ping postgres: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// FindLatestUnpaid returns the plate's newest unpaid session. Ties on entry
// time resolve to the lowest id, mirroring file order in the CSV store.
func (s *PostgresStore) FindLatestUnpaid(ctx context.Context, plate string) (*models.ParkingSession, error) {
	const query = `
		SELECT plate, entry_time
		FROM parking_sessions
		WHERE plate = $1 AND NOT paid
		ORDER BY entry_time DESC, id ASC
		LIMIT 1
	`
	session := &models.ParkingSession{Status: models.StatusUnpaid}
	err := s.db.QueryRowContext(ctx, query, plate).Scan(&session.Plate, &session.EntryTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoUnpaidSession
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: lookup %s: %w", plate, err)
	}
	return session, nil
}

// CommitPayment settles the newest unpaid session in a single UPDATE; zero
// rows affected means another actor settled it first.
func (s *PostgresStore) CommitPayment(ctx context.Context, plate string, amount decimal.Decimal) (bool, error) {
	const query = `
		UPDATE parking_sessions
		SET paid = TRUE, amount_paid = $2
		WHERE id = (
			SELECT id FROM parking_sessions
			WHERE plate = $1 AND NOT paid
			ORDER BY entry_time DESC, id ASC
			LIMIT 1
		)
	`
	res, err := s.db.ExecContext(ctx, query, plate, amount)
	if err != nil {
		return false, fmt.Errorf("ledger: settle %s: %w", plate, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ledger: settle %s: %w", plate, err)
	}
	return affected == 1, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
