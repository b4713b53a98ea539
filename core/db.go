package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrdering parses a comma separated list of fields, each optionally prefixed by "-" for descending order.
// Fields not found in allowed (json name -> column name) are dropped.
func ParseOrdering(raw string, allowed map[string]string) []DBOrdering {
	if raw == "" {
		return nil
	}
	var orderings []DBOrdering
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		col, ok := allowed[field]
		if !ok {
			continue
		}
		orderings = append(orderings, DBOrdering{Field: col, Ascending: !descending})
	}
	return orderings
}

// QueryFilter is shared by all listing queries.
type QueryFilter struct {
	Search   string       `query:"search"`
	Ordering []DBOrdering `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = CleanString(qf.Search)
}
