package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resourcehub/booking-engine/internal/model"
	"github.com/resourcehub/booking-engine/internal/repository/base"
)

type WaitlistRepository struct {
	pool *pgxpool.Pool
}

func NewWaitlistRepository(pool *pgxpool.Pool) *WaitlistRepository {
	return &WaitlistRepository{pool: pool}
}

const waitlistColumns = `
	id, resource_id, user_id, requested_start, requested_end, status, priority,
	created_at, notified_at, notify_expires_at
`

func scanEntry(row pgx.Row) (*model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	err := row.Scan(
		&e.ID,
		&e.ResourceID,
		&e.UserID,
		&e.RequestedStart,
		&e.RequestedEnd,
		&e.Status,
		&e.Priority,
		&e.CreatedAt,
		&e.NotifiedAt,
		&e.NotifyExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectEntries(rows pgx.Rows) ([]*model.WaitlistEntry, error) {
	defer rows.Close()

	var entries []*model.WaitlistEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan waitlist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Create добавляет запись в очередь ожидания.
// Дубликаты отсекает частичный уникальный индекс по активным записям.
func (r *WaitlistRepository) Create(ctx context.Context, entry *model.WaitlistEntry) error {
	query := `
		INSERT INTO waitlist_entries (resource_id, user_id, requested_start, requested_end, status, priority)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		entry.ResourceID,
		entry.UserID,
		entry.RequestedStart,
		entry.RequestedEnd,
		entry.Status,
		entry.Priority,
	).Scan(&entry.ID, &entry.CreatedAt)

	if base.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create waitlist entry: %w", err)
	}

	return nil
}

// GetByID получает запись очереди по ID
func (r *WaitlistRepository) GetByID(ctx context.Context, id int64) (*model.WaitlistEntry, error) {
	entry, err := scanEntry(r.pool.QueryRow(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist_entries WHERE id = $1`, id))
	if base.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get waitlist entry by id: %w", err)
	}
	return entry, nil
}

// ListWaitingOverlapping получает ожидающие записи ресурса, чьё запрошенное
// окно пересекается с [from, to). Порядок обслуживания: приоритет по убыванию,
// внутри приоритета — FIFO по времени создания.
func (r *WaitlistRepository) ListWaitingOverlapping(ctx context.Context, resourceID int64, from, to time.Time) ([]*model.WaitlistEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE resource_id = $1
		  AND status = $2
		  AND requested_start < $4
		  AND requested_end > $3
		ORDER BY priority DESC, created_at ASC, id ASC`,
		resourceID, model.WaitlistStatusWaiting, from, to)
	if err != nil {
		return nil, fmt.Errorf("list waiting entries: %w", err)
	}
	return collectEntries(rows)
}

// HasNotifiedOverlapping проверяет есть ли уже уведомлённая запись в
// пересекающемся окне (в группе окон одновременно уведомлён максимум один)
func (r *WaitlistRepository) HasNotifiedOverlapping(ctx context.Context, resourceID int64, from, to time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM waitlist_entries
			WHERE resource_id = $1
			  AND status = $2
			  AND requested_start < $4
			  AND requested_end > $3
		)`,
		resourceID, model.WaitlistStatusNotified, from, to).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check notified entries: %w", err)
	}
	return exists, nil
}

// MarkNotified переводит waiting в notified (CAS) и проставляет
// время уведомления и дедлайн ответа
func (r *WaitlistRepository) MarkNotified(ctx context.Context, id int64, notifiedAt, expiresAt time.Time) (*model.WaitlistEntry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE waitlist_entries
		SET status = $1, notified_at = $2, notify_expires_at = $3
		WHERE id = $4 AND status = $5
		RETURNING `+waitlistColumns,
		model.WaitlistStatusNotified, notifiedAt, expiresAt, id, model.WaitlistStatusWaiting)

	entry, err := scanEntry(row)
	if base.IsNotFound(err) {
		return nil, ErrStale
	}
	if err != nil {
		return nil, fmt.Errorf("mark entry notified: %w", err)
	}
	return entry, nil
}

// MarkConverted переводит notified в converted (CAS)
func (r *WaitlistRepository) MarkConverted(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE waitlist_entries
		SET status = $1
		WHERE id = $2 AND status = $3`,
		model.WaitlistStatusConverted, id, model.WaitlistStatusNotified)
	if err != nil {
		return fmt.Errorf("mark entry converted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// MarkExpired переводит запись из from в expired (CAS)
func (r *WaitlistRepository) MarkExpired(ctx context.Context, id int64, from model.WaitlistStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE waitlist_entries
		SET status = $1
		WHERE id = $2 AND status = $3`,
		model.WaitlistStatusExpired, id, from)
	if err != nil {
		return fmt.Errorf("mark entry expired: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

// ListNotifiedDue получает уведомлённые записи с истёкшим дедлайном ответа
func (r *WaitlistRepository) ListNotifiedDue(ctx context.Context, now time.Time) ([]*model.WaitlistEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE status = $1 AND notify_expires_at <= $2
		ORDER BY notify_expires_at`,
		model.WaitlistStatusNotified, now)
	if err != nil {
		return nil, fmt.Errorf("list notified due entries: %w", err)
	}
	return collectEntries(rows)
}

// ExpireStaleWaiting помечает ожидающие записи старше cutoff как expired
func (r *WaitlistRepository) ExpireStaleWaiting(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE waitlist_entries
		SET status = $1
		WHERE status = $2 AND created_at < $3`,
		model.WaitlistStatusExpired, model.WaitlistStatusWaiting, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire stale waiting entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOwned удаляет запись очереди, принадлежащую пользователю,
// и возвращает удалённую запись
func (r *WaitlistRepository) DeleteOwned(ctx context.Context, id, userID int64) (*model.WaitlistEntry, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM waitlist_entries
		WHERE id = $1 AND user_id = $2
		RETURNING `+waitlistColumns,
		id, userID)

	entry, err := scanEntry(row)
	if base.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete waitlist entry: %w", err)
	}
	return entry, nil
}

// CountAhead считает сколько ожидающих записей обслужат раньше данной
// в пределах её запрошенного окна
func (r *WaitlistRepository) CountAhead(ctx context.Context, entry *model.WaitlistEntry) (int, error) {
	var ahead int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM waitlist_entries
		WHERE resource_id = $1
		  AND status = $2
		  AND requested_start < $4
		  AND requested_end > $3
		  AND (priority > $5 OR (priority = $5 AND created_at < $6))`,
		entry.ResourceID, model.WaitlistStatusWaiting,
		entry.RequestedStart, entry.RequestedEnd,
		entry.Priority, entry.CreatedAt).Scan(&ahead)
	if err != nil {
		return 0, fmt.Errorf("count entries ahead: %w", err)
	}
	return ahead, nil
}
