// Package recurrence вычисляет повторения бронирований по шаблону.
// Расчёт чистый: каждое следующее повторение выводится из предыдущего,
// без обращения к хранилищу и системным часам.
package recurrence

import (
	"time"

	"github.com/resourcehub/booking-engine/internal/interval"
	"github.com/resourcehub/booking-engine/internal/model"
)

// NextStart возвращает начало следующего повторения.
// daily: +1 день, weekly: +7 дней, monthly: то же число следующего месяца;
// если такого числа в следующем месяце нет (например 31-е),
// берётся последний день месяца.
func NextStart(start time.Time, pattern model.RecurrencePattern) time.Time {
	switch pattern {
	case model.RecurrenceDaily:
		return start.AddDate(0, 0, 1)
	case model.RecurrenceWeekly:
		return start.AddDate(0, 0, 7)
	case model.RecurrenceMonthly:
		return addMonthClamped(start)
	default:
		return start
	}
}

// Expand разворачивает серию в список интервалов начиная с первого повторения.
// Генерация останавливается как только начало очередного повторения
// оказывается позже until. until раньше первого начала даёт серию из
// одного интервала.
func Expand(firstStart, firstEnd time.Time, pattern model.RecurrencePattern, until time.Time) []interval.Span {
	duration := firstEnd.Sub(firstStart)
	spans := []interval.Span{{Start: firstStart, End: firstEnd}}

	current := firstStart
	for {
		current = NextStart(current, pattern)
		if current.After(until) {
			break
		}
		spans = append(spans, interval.Span{Start: current, End: current.Add(duration)})
	}

	return spans
}

// addMonthClamped сдвигает дату на месяц вперёд не перескакивая через месяц.
// time.AddDate нормализует 31 февраля в 2-3 марта, поэтому число месяца
// ограничивается вручную.
func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	nextYear, nextMonth := year, month+1
	if nextMonth > time.December {
		nextYear, nextMonth = year+1, time.January
	}

	if last := daysInMonth(nextYear, nextMonth); day > last {
		day = last
	}

	return time.Date(nextYear, nextMonth, day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysInMonth возвращает количество дней в месяце.
// Нулевой день следующего месяца — это последний день текущего.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
