package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGStore struct {
	db       *pgxpool.Pool
	quotas   *PGQuotaRepository
	bookings *PGBookingRepository
	audit    *PGAuditRepository
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{
		db:       db,
		quotas:   &PGQuotaRepository{db: db},
		bookings: &PGBookingRepository{db: db},
		audit:    &PGAuditRepository{db: db},
	}
}

func (s *PGStore) Quotas() QuotaReader     { return s.quotas }
func (s *PGStore) Bookings() BookingReader { return s.bookings }
func (s *PGStore) Audit() AuditWriter      { return s.audit }

func (s *PGStore) Close() { s.db.Close() }

// WithinTx runs fn in a READ COMMITTED transaction; rows locked with
// SELECT ... FOR UPDATE are held until commit or rollback.
func (s *PGStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Migrate creates the schema when it is missing.
func (s *PGStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS flight_quotas (
		flight_date      DATE PRIMARY KEY,
		sortie_count     INT NOT NULL CHECK (sortie_count > 0),
		seats_per_sortie INT NOT NULL CHECK (seats_per_sortie > 0),
		total_seats      INT NOT NULL,
		booked_seats     INT NOT NULL DEFAULT 0,
		available_seats  INT NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT flight_quotas_counters CHECK (
			booked_seats >= 0 AND booked_seats <= total_seats
			AND available_seats = total_seats - booked_seats
		)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		ticket_number            TEXT PRIMARY KEY,
		owner_kind               TEXT NOT NULL,
		owner_value              TEXT NOT NULL,
		flight_date              DATE NOT NULL,
		status                   TEXT NOT NULL,
		cancelled_by             TEXT NOT NULL DEFAULT '',
		passenger_name           TEXT NOT NULL,
		age                      INT NOT NULL DEFAULT 0,
		phone                    TEXT NOT NULL DEFAULT '',
		email                    TEXT NOT NULL DEFAULT '',
		address                  TEXT NOT NULL DEFAULT '',
		from_location            TEXT NOT NULL,
		to_location              TEXT NOT NULL,
		id_type                  TEXT NOT NULL DEFAULT '',
		id_number                TEXT NOT NULL DEFAULT '',
		id_document_path         TEXT NOT NULL DEFAULT '',
		supporting_document_path TEXT NOT NULL DEFAULT '',
		emergency_name           TEXT NOT NULL DEFAULT '',
		emergency_relation       TEXT NOT NULL DEFAULT '',
		emergency_phone          TEXT NOT NULL DEFAULT '',
		created_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at               TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS bookings_owner_idx ON bookings (owner_kind, owner_value)`,
	`CREATE INDEX IF NOT EXISTS bookings_date_status_idx ON bookings (flight_date, status)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id         UUID PRIMARY KEY,
		actor_type TEXT NOT NULL,
		actor_id   TEXT NOT NULL DEFAULT '',
		action     TEXT NOT NULL,
		details    JSONB NOT NULL DEFAULT '{}',
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockQuota(ctx context.Context, date string) (*domain.FlightQuota, error) {
	day, err := dateArg(date)
	if err != nil {
		return nil, err
	}
	return scanQuota(t.tx.QueryRow(ctx, `SELECT `+quotaColumns+` FROM flight_quotas WHERE flight_date=$1 FOR UPDATE`, day))
}

func (t *pgTx) InsertQuota(ctx context.Context, q *domain.FlightQuota) error {
	day, err := dateArg(q.Date)
	if err != nil {
		return err
	}
	q.Recompute()
	err = t.tx.QueryRow(ctx, `INSERT INTO flight_quotas (flight_date, sortie_count, seats_per_sortie, total_seats, booked_seats, available_seats, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, clock_timestamp(), clock_timestamp())
		RETURNING created_at, updated_at`,
		day, q.SortieCount, q.SeatsPerSortie, q.TotalSeats, q.BookedSeats, q.AvailableSeats).
		Scan(&q.CreatedAt, &q.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrQuotaExists
	}
	return err
}

// UpdateQuota stamps updated_at with the wall clock rather than the
// transaction start, so snapshots order by commit under the row lock.
func (t *pgTx) UpdateQuota(ctx context.Context, q *domain.FlightQuota) error {
	day, err := dateArg(q.Date)
	if err != nil {
		return err
	}
	q.Recompute()
	err = t.tx.QueryRow(ctx, `UPDATE flight_quotas
		SET sortie_count=$2, seats_per_sortie=$3, total_seats=$4, booked_seats=$5, available_seats=$6, updated_at=clock_timestamp()
		WHERE flight_date=$1
		RETURNING updated_at`,
		day, q.SortieCount, q.SeatsPerSortie, q.TotalSeats, q.BookedSeats, q.AvailableSeats).
		Scan(&q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (t *pgTx) LockBooking(ctx context.Context, ticket string) (*domain.Booking, error) {
	return scanBooking(t.tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE ticket_number=$1 FOR UPDATE`, ticket))
}

func (t *pgTx) TicketExists(ctx context.Context, ticket string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE ticket_number=$1)`, ticket).Scan(&exists)
	return exists, err
}

func (t *pgTx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	day, err := dateArg(b.Date)
	if err != nil {
		return err
	}
	err = t.tx.QueryRow(ctx, `INSERT INTO bookings (
			ticket_number, owner_kind, owner_value, flight_date, status, cancelled_by,
			passenger_name, age, phone, email, address, from_location, to_location,
			id_type, id_number, id_document_path, supporting_document_path,
			emergency_name, emergency_relation, emergency_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING created_at, updated_at`,
		b.TicketNumber, b.Owner.Kind, b.Owner.Value, day, b.Status, b.CancelledBy,
		b.PassengerName, b.Age, b.Phone, b.Email, b.Address, b.From, b.To,
		b.IDType, b.IDNumber, b.IDDocumentPath, b.SupportingDocumentPath,
		b.Emergency.Name, b.Emergency.Relation, b.Emergency.Phone).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateTicket
	}
	return err
}

// UpdateBooking persists the mutable fields: date, status, cancellation
// actor and contact details.
func (t *pgTx) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	day, err := dateArg(b.Date)
	if err != nil {
		return err
	}
	err = t.tx.QueryRow(ctx, `UPDATE bookings
		SET flight_date=$2, status=$3, cancelled_by=$4, phone=$5, email=$6, updated_at=now()
		WHERE ticket_number=$1
		RETURNING updated_at`,
		b.TicketNumber, day, b.Status, b.CancelledBy, b.Phone, b.Email).
		Scan(&b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func dateArg(date string) (time.Time, error) {
	return domain.ParseDate(date)
}

var _ Store = (*PGStore)(nil)
var _ Tx = (*pgTx)(nil)
