package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resourcehub/booking-engine/internal/model"
	"github.com/resourcehub/booking-engine/internal/repository/base"
)

// ResourceRepository читает каталог ресурсов.
// Каталог принадлежит другой системе, движок его не изменяет.
type ResourceRepository struct {
	pool *pgxpool.Pool
}

func NewResourceRepository(pool *pgxpool.Pool) *ResourceRepository {
	return &ResourceRepository{pool: pool}
}

// GetByID получает ресурс вместе с окнами недоступности
func (r *ResourceRepository) GetByID(ctx context.Context, id int64) (*model.Resource, error) {
	var resource model.Resource
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, title, requires_approval,
		       min_duration_minutes, max_duration_minutes, created_at
		FROM resources
		WHERE id = $1`,
		id).Scan(
		&resource.ID,
		&resource.OwnerID,
		&resource.Title,
		&resource.RequiresApproval,
		&resource.MinDurationMinutes,
		&resource.MaxDurationMinutes,
		&resource.CreatedAt,
	)
	if base.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get resource by id: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, resource_id, start_time, end_time, reason
		FROM resource_blackouts
		WHERE resource_id = $1
		ORDER BY start_time`,
		id)
	if err != nil {
		return nil, fmt.Errorf("get resource blackouts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w model.BlackoutWindow
		if err := rows.Scan(&w.ID, &w.ResourceID, &w.StartTime, &w.EndTime, &w.Reason); err != nil {
			return nil, fmt.Errorf("scan blackout window: %w", err)
		}
		resource.Blackouts = append(resource.Blackouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &resource, nil
}
