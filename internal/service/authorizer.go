package service

import (
	"context"
	"fmt"

	"github.com/resourcehub/booking-engine/internal/model"
)

// OwnerAuthorizer — политика прав по умолчанию: администратор может всё,
// автор заявки может отменить свою, владелец ресурса — одобрять, отклонять
// и отменять бронирования своего ресурса.
type OwnerAuthorizer struct {
	users     UserStore
	resources ResourceStore
}

func NewOwnerAuthorizer(users UserStore, resources ResourceStore) *OwnerAuthorizer {
	return &OwnerAuthorizer{users: users, resources: resources}
}

// CanAct проверяет права пользователя на действие с бронированием
func (a *OwnerAuthorizer) CanAct(ctx context.Context, userID int64, booking *model.Booking, action Action) (bool, error) {
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("get actor: %w", mapRepoError(err))
	}

	if user.IsAdmin {
		return true, nil
	}

	if action == ActionCancel && booking.RequesterID == userID {
		return true, nil
	}

	resource, err := a.resources.GetByID(ctx, booking.ResourceID)
	if err != nil {
		return false, fmt.Errorf("get resource: %w", mapRepoError(err))
	}

	switch action {
	case ActionApprove, ActionReject, ActionCancel:
		return resource.OwnerID == userID, nil
	default:
		return false, nil
	}
}
