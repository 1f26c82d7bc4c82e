package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/md-rashed-zaman/spacebook/libs/db"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/spacebook/services/booking-service/internal/outbox"
)

const bookingColumns = `
	id::text, space_name, start_at, end_at, booking_date::text, start_time, end_time,
	booking_type, booking_status, event_id, booked_by_user_id,
	title, description, booking_details,
	contact_name, contact_email, contact_phone,
	price_amount::float8, currency, payment_status,
	is_recurring, recurrence_pattern, parent_booking_id::text,
	external_booking_id, source, created_by,
	created_at, updated_at, deleted_at`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BookingRepository is the Postgres booking store.
type BookingRepository struct {
	reader
	pool   *db.Pool
	outbox *outbox.Repository
}

var _ booking.Store = (*BookingRepository)(nil)

func NewBookingRepository(pool *db.Pool, outboxRepo *outbox.Repository) *BookingRepository {
	return &BookingRepository{reader: reader{q: pool}, pool: pool, outbox: outboxRepo}
}

func (r *BookingRepository) InTx(ctx context.Context, fn func(booking.Tx) error) error {
	return r.pool.InTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&txRepository{reader: reader{q: tx}, tx: tx, outbox: r.outbox})
	})
}

type reader struct {
	q querier
}

func (r reader) Get(ctx context.Context, id string, includeDeleted bool) (model.Booking, error) {
	sql := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if !includeDeleted {
		sql += ` AND deleted_at IS NULL`
	}
	b, err := scanBooking(r.q.QueryRow(ctx, sql, id))
	return b, notFound(err)
}

func (r reader) ListActiveOverlapping(ctx context.Context, space string, start, end time.Time) ([]model.Booking, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE space_name = $1
			AND deleted_at IS NULL
			AND booking_status IN ('confirmed', 'pending')
			AND start_at < $3
			AND end_at > $2
		ORDER BY start_at ASC
	`, space, start, end)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r reader) List(ctx context.Context, f model.Filter, p model.Page) ([]model.Booking, int, error) {
	w := listWhere(f)

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM bookings`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}

	limit := w.next()
	args := append(append([]any{}, w.args...), p.PageSize, p.Offset())
	offset := "$" + fmt.Sprint(len(args))
	rows, err := r.q.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings`+w.String()+
			` ORDER BY start_at DESC, id ASC LIMIT `+limit+` OFFSET `+offset,
		args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectBookings(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r reader) ListInRange(ctx context.Context, from, to *time.Time) ([]model.Booking, error) {
	w := &where{}
	w.raw("deleted_at IS NULL")
	if from != nil {
		w.add("start_at >= ?", *from)
	}
	if to != nil {
		w.add("start_at < ?", *to)
	}
	rows, err := r.q.Query(ctx, `SELECT `+bookingColumns+` FROM bookings`+w.String()+` ORDER BY start_at ASC`, w.args...)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r reader) SpaceNames(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT DISTINCT space_name
		FROM bookings
		WHERE deleted_at IS NULL
		ORDER BY space_name
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

type txRepository struct {
	reader
	tx     pgx.Tx
	outbox *outbox.Repository
}

// LockSpaces takes a transaction-scoped advisory lock per space. Together with the
// bookings_no_overlap constraint this closes the check-then-insert race.
func (t *txRepository) LockSpaces(ctx context.Context, spaces ...string) error {
	for _, key := range spaceLockKeys(spaces) {
		if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
	}
	return nil
}

func (t *txRepository) GetForUpdate(ctx context.Context, id string) (model.Booking, error) {
	b, err := scanBooking(t.tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
	return b, notFound(err)
}

func (t *txRepository) Insert(ctx context.Context, b model.Booking) error {
	details, err := marshalDetails(b.Details)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO bookings (
			id, space_name, start_at, end_at, booking_date, start_time, end_time,
			booking_type, booking_status, event_id, booked_by_user_id,
			title, description, booking_details,
			contact_name, contact_email, contact_phone,
			price_amount, currency, payment_status,
			is_recurring, recurrence_pattern, parent_booking_id,
			external_booking_id, source, created_by,
			created_at, updated_at, deleted_at
		) VALUES (
			$1, $2, $3, $4, $5::date, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14,
			$15, $16, $17,
			$18, $19, $20,
			$21, $22, $23::uuid,
			$24, $25, $26,
			$27, $28, $29
		)
	`,
		b.ID, b.SpaceName, b.StartAt, b.EndAt, b.BookingDate, b.StartTime, b.EndTime,
		string(b.Type), string(b.Status), b.EventID, b.BookedByUserID,
		b.Title, b.Description, details,
		b.ContactName, b.ContactEmail, b.ContactPhone,
		b.PriceAmount, b.Currency, b.PaymentStatus,
		b.IsRecurring, b.RecurrencePattern, b.ParentBookingID,
		b.ExternalBookingID, b.Source, b.CreatedBy,
		b.CreatedAt, b.UpdatedAt, b.DeletedAt,
	)
	return writeErr(err)
}

func (t *txRepository) Update(ctx context.Context, b model.Booking) error {
	details, err := marshalDetails(b.Details)
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE bookings SET
			space_name = $2, start_at = $3, end_at = $4,
			booking_date = $5::date, start_time = $6, end_time = $7,
			booking_type = $8, booking_status = $9,
			event_id = $10, booked_by_user_id = $11,
			title = $12, description = $13, booking_details = $14,
			contact_name = $15, contact_email = $16, contact_phone = $17,
			price_amount = $18, currency = $19, payment_status = $20,
			is_recurring = $21, recurrence_pattern = $22,
			external_booking_id = $23, source = $24,
			updated_at = $25, deleted_at = $26
		WHERE id = $1
	`,
		b.ID, b.SpaceName, b.StartAt, b.EndAt,
		b.BookingDate, b.StartTime, b.EndTime,
		string(b.Type), string(b.Status),
		b.EventID, b.BookedByUserID,
		b.Title, b.Description, details,
		b.ContactName, b.ContactEmail, b.ContactPhone,
		b.PriceAmount, b.Currency, b.PaymentStatus,
		b.IsRecurring, b.RecurrencePattern,
		b.ExternalBookingID, b.Source,
		b.UpdatedAt, b.DeletedAt,
	)
	if err != nil {
		return writeErr(err)
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (t *txRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		if IsInvalidID(err) {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *txRepository) Emit(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}

func scanBooking(row pgx.Row) (model.Booking, error) {
	var (
		b       model.Booking
		bType   string
		status  string
		details []byte
	)
	err := row.Scan(
		&b.ID,
		&b.SpaceName,
		&b.StartAt,
		&b.EndAt,
		&b.BookingDate,
		&b.StartTime,
		&b.EndTime,
		&bType,
		&status,
		&b.EventID,
		&b.BookedByUserID,
		&b.Title,
		&b.Description,
		&details,
		&b.ContactName,
		&b.ContactEmail,
		&b.ContactPhone,
		&b.PriceAmount,
		&b.Currency,
		&b.PaymentStatus,
		&b.IsRecurring,
		&b.RecurrencePattern,
		&b.ParentBookingID,
		&b.ExternalBookingID,
		&b.Source,
		&b.CreatedBy,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.DeletedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Type = model.BookingType(bType)
	b.Status = model.BookingStatus(status)
	if len(details) > 0 {
		if err := json.Unmarshal(details, &b.Details); err != nil {
			return model.Booking{}, fmt.Errorf("decode booking_details of %s: %w", b.ID, err)
		}
	}
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]model.Booking, error) {
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func marshalDetails(details map[string]any) ([]byte, error) {
	if details == nil {
		return nil, nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("encode booking_details: %w", err)
	}
	return raw, nil
}

func notFound(err error) error {
	if IsNotFound(err) || IsInvalidID(err) {
		return booking.ErrNotFound
	}
	return err
}

func writeErr(err error) error {
	switch {
	case IsConflict(err):
		return booking.ErrOverlap
	case isForeignKey(err):
		return &booking.ValidationError{Fields: map[string]string{"parent_booking_id": "must reference an existing booking"}}
	}
	return err
}

// parent_booking_id is the only foreign key on bookings.
func isForeignKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// IsConflict reports an exclusion constraint violation.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsInvalidID reports a malformed uuid literal, which cannot name any booking.
func IsInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
