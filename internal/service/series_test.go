package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resourcehub/booking-engine/internal/model"
)

func TestCreateRecurringBookingSkipsConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Третье повторение (16 марта) занято заранее
	blocker, err := f.svc.CreateBooking(ctx, 10, 3,
		time.Date(2026, time.March, 16, 10, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 16, 11, 0, 0, 0, time.UTC), "")
	require.NoError(t, err)
	_, err = f.svc.ApproveBooking(ctx, blocker.ID, 1)
	require.NoError(t, err)

	until := time.Date(2026, time.March, 23, 23, 0, 0, 0, time.UTC)
	result, err := f.svc.CreateRecurringBooking(ctx, 10, 2,
		f.at(10, 0), f.at(11, 0), model.RecurrenceWeekly, until, "weekly sync")
	require.NoError(t, err)

	// 2, 9, 16, 23 марта: одно окно пропущено, три созданы
	require.Len(t, result.Created, 3)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, time.Date(2026, time.March, 16, 10, 0, 0, 0, time.UTC), result.Skipped[0].Start)

	parent := result.Created[0]
	assert.Nil(t, parent.ParentBookingID)
	require.NotNil(t, parent.SeriesID)

	for _, child := range result.Created[1:] {
		require.NotNil(t, child.ParentBookingID)
		assert.Equal(t, parent.ID, *child.ParentBookingID)
		require.NotNil(t, child.SeriesID)
		assert.Equal(t, *parent.SeriesID, *child.SeriesID)
	}
}

func TestCreateRecurringBookingSingleOccurrence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// until раньше второго повторения: серия из одного бронирования
	until := f.at(23, 0)
	result, err := f.svc.CreateRecurringBooking(ctx, 10, 2,
		f.at(10, 0), f.at(11, 0), model.RecurrenceDaily, until, "")
	require.NoError(t, err)

	require.Len(t, result.Created, 1)
	assert.Empty(t, result.Skipped)
	assert.True(t, result.Created[0].IsRecurring)
}

func TestCreateRecurringBookingFullyBlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blocker, err := f.svc.CreateBooking(ctx, 10, 3, f.at(9, 30), f.at(11, 30), "")
	require.NoError(t, err)
	_, err = f.svc.ApproveBooking(ctx, blocker.ID, 1)
	require.NoError(t, err)

	result, err := f.svc.CreateRecurringBooking(ctx, 10, 2,
		f.at(10, 0), f.at(11, 0), model.RecurrenceDaily, f.at(12, 0), "")
	require.NoError(t, err)

	assert.Empty(t, result.Created)
	require.Len(t, result.Skipped, 1)
}

func TestCreateRecurringBookingRequiresPattern(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateRecurringBooking(context.Background(), 10, 2,
		f.at(10, 0), f.at(11, 0), model.RecurrenceNone, f.at(23, 0), "")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestCancelSeriesStopsFutureOccurrences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	until := time.Date(2026, time.March, 23, 23, 0, 0, 0, time.UTC)
	result, err := f.svc.CreateRecurringBooking(ctx, 10, 2,
		f.at(10, 0), f.at(11, 0), model.RecurrenceWeekly, until, "")
	require.NoError(t, err)
	require.Len(t, result.Created, 4)

	parent := result.Created[0]

	// Первое повторение уже завершилось, второе идёт прямо сейчас
	f.now = time.Date(2026, time.March, 9, 10, 30, 0, 0, time.UTC)

	cancelled, err := f.svc.CancelSeries(ctx, parent.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, cancelled)

	first, err := f.svc.GetBooking(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, first.Status)

	for _, member := range result.Created[2:] {
		stored, err := f.svc.GetBooking(ctx, member.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingStatusCancelled, stored.Status)
	}
}

func TestCancelSeriesRejectsNonParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	until := time.Date(2026, time.March, 9, 23, 0, 0, 0, time.UTC)
	result, err := f.svc.CreateRecurringBooking(ctx, 10, 2,
		f.at(10, 0), f.at(11, 0), model.RecurrenceWeekly, until, "")
	require.NoError(t, err)
	require.Len(t, result.Created, 2)

	child := result.Created[1]
	_, err = f.svc.CancelSeries(ctx, child.ID, 2)
	assert.ErrorIs(t, err, ErrInvalidState)

	single, err := f.svc.CreateBooking(ctx, 10, 2, f.at(14, 0), f.at(15, 0), "")
	require.NoError(t, err)
	_, err = f.svc.CancelSeries(ctx, single.ID, 2)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelSeriesRequiresPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.svc.CreateRecurringBooking(ctx, 10, 2,
		f.at(10, 0), f.at(11, 0), model.RecurrenceWeekly, f.at(23, 0), "")
	require.NoError(t, err)

	_, err = f.svc.CancelSeries(ctx, result.Created[0].ID, 3)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
