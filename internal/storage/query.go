package storage

import "strings"

// whereBuilder collects AND-ed conditions with their arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, args ...any) *whereBuilder {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
	return w
}

// addAreaFilter matches the administrative area case-insensitively.
func (w *whereBuilder) addAreaFilter(column, area string) *whereBuilder {
	area = strings.TrimSpace(area)
	if area == "" {
		return w
	}
	return w.add("LOWER("+column+") LIKE '%' || LOWER(?) || '%'", area)
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}
