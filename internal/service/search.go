package service

import (
	"strings"

	"github.com/and161185/eventflow/internal/model"
)

// FilterByName returns the views whose name contains q, ignoring case.
// An empty query returns views unchanged.
func FilterByName(views []model.EventView, q string) []model.EventView {
	if q == "" {
		return views
	}
	needle := strings.ToLower(q)
	out := make([]model.EventView, 0, len(views))
	for _, v := range views {
		if strings.Contains(strings.ToLower(v.Name), needle) {
			out = append(out, v)
		}
	}
	return out
}
