package submissions

import (
	"html/template"
	"sort"
	"strings"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// listColumns are the data columns of the admin list, in order.
var listColumns = []string{"id", "name", "mail", "subject", "language", "timestamp"}

// Sortable reports whether the list can be ordered by column.
func Sortable(column string) bool {
	if column == "id" {
		return false
	}
	for _, c := range listColumns {
		if c == column {
			return true
		}
	}
	return false
}

// Row is a formatted list row. Texts holds the plain display text of each
// cell, the sort key of its column.
type Row struct {
	ID    int64
	Cells map[string]template.HTML
	Texts map[string]string
}

// SortRows orders rows in place by the displayed text of column.
// Unknown columns and directions leave rows untouched.
func SortRows(rows []Row, column, dir string) {
	if !Sortable(column) || (dir != SortAsc && dir != SortDesc) {
		return
	}

	keys := make(map[int64]string, len(rows))
	for _, r := range rows {
		keys[r.ID] = strings.ToLower(r.Texts[column])
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := keys[rows[i].ID], keys[rows[j].ID]
		if dir == SortDesc {
			return a > b
		}
		return a < b
	})
}

// ParseSort reads the order and sort query values. Without a valid column
// the list is ordered by the date column descending; a column without a
// direction sorts ascending. Dates compare as their displayed
// MM/DD/YYYY - HH:MM text, so descending is not newest first across months.
func ParseSort(order, dir string) (string, string) {
	valid := dir == SortAsc || dir == SortDesc
	if !Sortable(order) {
		order = "timestamp"
		if !valid {
			dir = SortDesc
		}
		return order, dir
	}
	if !valid {
		dir = SortAsc
	}
	return order, dir
}

// Toggle returns the direction a column header link switches to.
func Toggle(column, order, dir string) string {
	if column == order && dir == SortAsc {
		return SortDesc
	}
	return SortAsc
}
