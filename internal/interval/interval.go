// Package interval содержит чистую проверку пересечений временных интервалов.
// Все интервалы полуоткрытые [Start, End): бронирования впритык не конфликтуют.
package interval

import "time"

// Span — полуоткрытый временной интервал [Start, End)
type Span struct {
	Start time.Time
	End   time.Time
}

// IsValid проверяет что интервал не пустой
func (s Span) IsValid() bool {
	return s.End.After(s.Start)
}

// Booked — занятый интервал с идентификатором бронирования
type Booked struct {
	ID   int64
	Span Span
}

// Overlaps проверяет пересечение двух полуоткрытых интервалов.
// [s1,e1) и [s2,e2) пересекаются тогда и только тогда когда s1 < e2 и s2 < e1.
func Overlaps(a, b Span) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// FirstConflict ищет первый занятый интервал, пересекающийся с кандидатом.
// excludeID позволяет игнорировать само бронирование при повторной проверке
// (одобрение уже существующей заявки). Ноль означает «не исключать ничего».
func FirstConflict(candidate Span, active []Booked, excludeID int64) (int64, bool) {
	for _, b := range active {
		if excludeID != 0 && b.ID == excludeID {
			continue
		}
		if Overlaps(candidate, b.Span) {
			return b.ID, true
		}
	}
	return 0, false
}

// HasConflict проверяет есть ли хотя бы один конфликт с кандидатом
func HasConflict(candidate Span, active []Booked, excludeID int64) bool {
	_, found := FirstConflict(candidate, active, excludeID)
	return found
}
