package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resourcehub/booking-engine/internal/interval"
	"github.com/resourcehub/booking-engine/internal/model"
	"github.com/resourcehub/booking-engine/internal/repository/base"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

const bookingColumns = `
	id, resource_id, requester_id, start_time, end_time, status, notes, reason,
	is_recurring, recurrence_pattern, recurrence_end_date, parent_booking_id,
	series_id, external_event_ref, created_at, updated_at
`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.ResourceID,
		&b.RequesterID,
		&b.StartTime,
		&b.EndTime,
		&b.Status,
		&b.Notes,
		&b.Reason,
		&b.IsRecurring,
		&b.RecurrencePattern,
		&b.RecurrenceEndDate,
		&b.ParentBookingID,
		&b.SeriesID,
		&b.ExternalEventRef,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*model.Booking, error) {
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

// CreatePending атомарно проверяет конфликты и создаёт бронирование.
// Строка ресурса блокируется FOR UPDATE: два конкурентных создания на
// пересекающиеся окна одного ресурса сериализуются на уровне хранилища.
func (r *BookingRepository) CreatePending(ctx context.Context, booking *model.Booking) error {
	return base.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockResource(ctx, tx, booking.ResourceID); err != nil {
			return err
		}

		active, err := activeSpansTx(ctx, tx, booking.ResourceID, booking.StartTime, booking.EndTime)
		if err != nil {
			return err
		}

		candidate := interval.Span{Start: booking.StartTime, End: booking.EndTime}
		if interval.HasConflict(candidate, active, 0) {
			return ErrConflict
		}

		query := `
			INSERT INTO bookings (resource_id, requester_id, start_time, end_time, status, notes,
			                      is_recurring, recurrence_pattern, recurrence_end_date,
			                      parent_booking_id, series_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, created_at, updated_at
		`

		err = tx.QueryRow(
			ctx, query,
			booking.ResourceID,
			booking.RequesterID,
			booking.StartTime,
			booking.EndTime,
			booking.Status,
			booking.Notes,
			booking.IsRecurring,
			booking.RecurrencePattern,
			booking.RecurrenceEndDate,
			booking.ParentBookingID,
			booking.SeriesID,
		).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

		if err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		return nil
	})
}

// ApprovePending атомарно повторяет проверку конфликтов (исключая само
// бронирование) и переводит pending в approved. Статусный переход — CAS:
// если строка уже не pending, возвращается ErrStale.
func (r *BookingRepository) ApprovePending(ctx context.Context, id int64) (*model.Booking, error) {
	var approved *model.Booking

	err := base.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		booking, err := scanBooking(tx.QueryRow(ctx,
			`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
		if base.IsNotFound(err) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}

		if err := lockResource(ctx, tx, booking.ResourceID); err != nil {
			return err
		}

		active, err := activeSpansTx(ctx, tx, booking.ResourceID, booking.StartTime, booking.EndTime)
		if err != nil {
			return err
		}

		candidate := interval.Span{Start: booking.StartTime, End: booking.EndTime}
		if interval.HasConflict(candidate, active, booking.ID) {
			return ErrConflict
		}

		row := tx.QueryRow(ctx, `
			UPDATE bookings
			SET status = $1, updated_at = now()
			WHERE id = $2 AND status = $3
			RETURNING `+bookingColumns,
			model.BookingStatusApproved, id, model.BookingStatusPending)

		approved, err = scanBooking(row)
		if base.IsNotFound(err) {
			return ErrStale
		}
		if err != nil {
			return fmt.Errorf("approve booking: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return approved, nil
}

// UpdateStatus переводит бронирование из from в to (CAS по статусу)
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, from, to model.BookingStatus, reason *string) (*model.Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings
		SET status = $1, reason = COALESCE($2, reason), updated_at = now()
		WHERE id = $3 AND status = $4
		RETURNING `+bookingColumns,
		to, reason, id, from)

	booking, err := scanBooking(row)
	if base.IsNotFound(err) {
		// Либо строки нет, либо статус уже другой
		var exists bool
		checkErr := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists)
		if checkErr != nil {
			return nil, fmt.Errorf("check booking exists: %w", checkErr)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrStale
	}
	if err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	return booking, nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	booking, err := scanBooking(r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if base.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return booking, nil
}

// ListByRequester получает все бронирования пользователя
func (r *BookingRepository) ListByRequester(ctx context.Context, requesterID int64) ([]*model.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE requester_id = $1
		ORDER BY start_time DESC`,
		requesterID)
	if err != nil {
		return nil, fmt.Errorf("list bookings by requester: %w", err)
	}
	return collectBookings(rows)
}

// ListActiveInWindow получает активные бронирования ресурса,
// пересекающиеся с окном [from, to)
func (r *BookingRepository) ListActiveInWindow(ctx context.Context, resourceID int64, from, to time.Time) ([]*model.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE resource_id = $1
		  AND status IN ($2, $3)
		  AND start_time < $5
		  AND end_time > $4
		ORDER BY start_time`,
		resourceID, model.BookingStatusPending, model.BookingStatusApproved, from, to)
	if err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}
	return collectBookings(rows)
}

// ListSeriesChildren получает все дочерние бронирования серии
func (r *BookingRepository) ListSeriesChildren(ctx context.Context, parentID int64) ([]*model.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE parent_booking_id = $1
		ORDER BY start_time`,
		parentID)
	if err != nil {
		return nil, fmt.Errorf("list series children: %w", err)
	}
	return collectBookings(rows)
}

// SetExternalEventRef сохраняет ссылку на событие внешнего календаря.
// Вызывается по принципу best-effort, несовпадение строки не считается ошибкой.
func (r *BookingRepository) SetExternalEventRef(ctx context.Context, id int64, ref *string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE bookings SET external_event_ref = $1, updated_at = now() WHERE id = $2`,
		ref, id)
	if err != nil {
		return fmt.Errorf("set external event ref: %w", err)
	}
	return nil
}

// CompleteDueBefore переводит approved бронирования с прошедшим временем
// окончания в completed. Повторный вызов ничего не меняет.
func (r *BookingRepository) CompleteDueBefore(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bookings
		SET status = $1, updated_at = now()
		WHERE status = $2 AND end_time <= $3`,
		model.BookingStatusCompleted, model.BookingStatusApproved, now)
	if err != nil {
		return 0, fmt.Errorf("complete due bookings: %w", err)
	}
	return tag.RowsAffected(), nil
}

// lockResource берёт блокировку строки ресурса на время транзакции.
// Все проверки конфликтов по ресурсу выполняются под этой блокировкой.
func lockResource(ctx context.Context, tx pgx.Tx, resourceID int64) error {
	var id int64
	err := tx.QueryRow(ctx,
		`SELECT id FROM resources WHERE id = $1 FOR UPDATE`, resourceID).Scan(&id)
	if base.IsNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock resource: %w", err)
	}
	return nil
}

// activeSpansTx загружает занятые интервалы ресурса, пересекающиеся с окном.
// Выполняется внутри транзакции держащей блокировку ресурса.
func activeSpansTx(ctx context.Context, tx pgx.Tx, resourceID int64, from, to time.Time) ([]interval.Booked, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, start_time, end_time
		FROM bookings
		WHERE resource_id = $1
		  AND status IN ($2, $3)
		  AND start_time < $5
		  AND end_time > $4`,
		resourceID, model.BookingStatusPending, model.BookingStatusApproved, from, to)
	if err != nil {
		return nil, fmt.Errorf("load active spans: %w", err)
	}
	defer rows.Close()

	var active []interval.Booked
	for rows.Next() {
		var b interval.Booked
		if err := rows.Scan(&b.ID, &b.Span.Start, &b.Span.End); err != nil {
			return nil, fmt.Errorf("scan active span: %w", err)
		}
		active = append(active, b)
	}
	return active, rows.Err()
}
