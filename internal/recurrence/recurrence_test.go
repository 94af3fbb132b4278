package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resourcehub/booking-engine/internal/model"
)

func date(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func TestNextStart(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		pattern model.RecurrencePattern
		want    time.Time
	}{
		{
			name:    "daily adds one day",
			start:   date(2026, time.March, 2, 10),
			pattern: model.RecurrenceDaily,
			want:    date(2026, time.March, 3, 10),
		},
		{
			name:    "weekly adds seven days",
			start:   date(2026, time.March, 2, 10),
			pattern: model.RecurrenceWeekly,
			want:    date(2026, time.March, 9, 10),
		},
		{
			name:    "monthly keeps day of month",
			start:   date(2026, time.March, 15, 10),
			pattern: model.RecurrenceMonthly,
			want:    date(2026, time.April, 15, 10),
		},
		{
			name:    "monthly clamps 31st to shorter month",
			start:   date(2026, time.January, 31, 10),
			pattern: model.RecurrenceMonthly,
			want:    date(2026, time.February, 28, 10),
		},
		{
			name:    "monthly clamps to leap february",
			start:   date(2028, time.January, 31, 10),
			pattern: model.RecurrenceMonthly,
			want:    date(2028, time.February, 29, 10),
		},
		{
			name:    "monthly rolls over year boundary",
			start:   date(2026, time.December, 31, 10),
			pattern: model.RecurrenceMonthly,
			want:    date(2027, time.January, 31, 10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStart(tt.start, tt.pattern))
		})
	}
}

func TestExpandWeekly(t *testing.T) {
	firstStart := date(2026, time.March, 2, 10)
	firstEnd := date(2026, time.March, 2, 11)
	until := date(2026, time.March, 23, 10)

	spans := Expand(firstStart, firstEnd, model.RecurrenceWeekly, until)

	require.Len(t, spans, 4)
	for i, s := range spans {
		assert.Equal(t, firstStart.AddDate(0, 0, 7*i), s.Start)
		assert.Equal(t, time.Hour, s.End.Sub(s.Start))
	}
}

func TestExpandUntilBeforeFirstStart(t *testing.T) {
	firstStart := date(2026, time.March, 2, 10)
	firstEnd := date(2026, time.March, 2, 11)
	until := date(2026, time.February, 1, 0)

	// Серия всегда содержит хотя бы первое повторение
	spans := Expand(firstStart, firstEnd, model.RecurrenceDaily, until)
	require.Len(t, spans, 1)
	assert.Equal(t, firstStart, spans[0].Start)
	assert.Equal(t, firstEnd, spans[0].End)
}

func TestExpandStopsAtUntil(t *testing.T) {
	firstStart := date(2026, time.March, 2, 10)
	firstEnd := date(2026, time.March, 2, 11)

	// until совпадает с началом третьего повторения — оно включается
	until := date(2026, time.March, 4, 10)
	spans := Expand(firstStart, firstEnd, model.RecurrenceDaily, until)
	assert.Len(t, spans, 3)

	// until на минуту раньше — третье повторение отбрасывается
	until = date(2026, time.March, 4, 10).Add(-time.Minute)
	spans = Expand(firstStart, firstEnd, model.RecurrenceDaily, until)
	assert.Len(t, spans, 2)
}

func TestExpandMonthlyClampDoesNotRestoreDay(t *testing.T) {
	firstStart := date(2026, time.January, 31, 10)
	firstEnd := date(2026, time.January, 31, 12)
	until := date(2026, time.April, 30, 23)

	spans := Expand(firstStart, firstEnd, model.RecurrenceMonthly, until)

	// Каждое следующее повторение считается от предыдущего:
	// 31 янв -> 28 фев -> 28 мар -> 28 апр
	require.Len(t, spans, 4)
	assert.Equal(t, date(2026, time.February, 28, 10), spans[1].Start)
	assert.Equal(t, date(2026, time.March, 28, 10), spans[2].Start)
	assert.Equal(t, date(2026, time.April, 28, 10), spans[3].Start)
}
