package view

import "github.com/YelzhanWeb/orderdesk/internal/domain"

// Apply folds one change event into a newest-first list and returns the
// new list. The input slice is never modified.
//
// An insert is prepended unless its id is already present, in which case
// the row is replaced in place. An update replaces the row with the same id
// in place and is ignored when the id is unknown.
func Apply(list []domain.Order, ev domain.ChangeEvent) []domain.Order {
	if i := indexOf(list, ev.Order); i >= 0 {
		return replaceAt(list, i, ev.Order)
	}
	if ev.Type == domain.EventInsert {
		return prepend(list, ev.Order)
	}
	return list
}

// ApplyScoped is Apply for a list that only holds orders matching filter.
// Rows already in the list are always replaced in place. Unknown rows enter
// the list, at the top, only when they match the filter, whether they come
// as an insert or as an update.
func ApplyScoped(list []domain.Order, ev domain.ChangeEvent, filter domain.OrderFilter) []domain.Order {
	if i := indexOf(list, ev.Order); i >= 0 {
		return replaceAt(list, i, ev.Order)
	}
	if !filter.Matches(ev.Order) {
		return list
	}
	return prepend(list, ev.Order)
}

func indexOf(list []domain.Order, o domain.Order) int {
	for i := range list {
		if list[i].ID == o.ID {
			return i
		}
	}
	return -1
}

func replaceAt(list []domain.Order, i int, o domain.Order) []domain.Order {
	out := make([]domain.Order, len(list))
	copy(out, list)
	out[i] = o.Clone()
	return out
}

func prepend(list []domain.Order, o domain.Order) []domain.Order {
	out := make([]domain.Order, 0, len(list)+1)
	out = append(out, o.Clone())
	return append(out, list...)
}
