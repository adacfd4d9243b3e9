package repository

import "github.com/andres10976/slotwatch/internal/model"

// SplitWindow maps a window onto its two nullable minute columns.
func SplitWindow(w *model.Window) (start, end *int) {
	if w == nil {
		return nil, nil
	}
	s, e := int(w.Start), int(w.End)
	return &s, &e
}

// JoinWindow is the inverse of SplitWindow. A half-set pair reads as unset.
func JoinWindow(start, end *int) *model.Window {
	if start == nil || end == nil {
		return nil
	}
	return &model.Window{Start: model.TimeOfDay(*start), End: model.TimeOfDay(*end)}
}

// ItemsOrEmpty keeps the items column non-null.
func ItemsOrEmpty(items []model.Item) []model.Item {
	if items == nil {
		return []model.Item{}
	}
	return items
}
