package inmemdb

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

// column returns the value of the field tagged `db:"name"`, looking into embedded structs.
func column(v reflect.Value, name string) (reflect.Value, bool) {
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		fld := typ.Field(i)
		if fld.Anonymous && fld.Type.Kind() == reflect.Struct {
			if col, ok := column(v.Field(i), name); ok {
				return col, true
			}
			continue
		}
		if fld.Tag.Get("db") == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// compare returns -1, 0 or 1. Values of unsupported types are equal.
func compare(a, b reflect.Value) int {
	switch av := a.Interface().(type) {
	case time.Time:
		bv := b.Interface().(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
		return 0
	case null.String:
		return strings.Compare(av.String, b.Interface().(null.String).String)
	}
	switch a.Kind() {
	case reflect.String:
		return strings.Compare(strings.ToLower(a.String()), strings.ToLower(b.String()))
	case reflect.Int, reflect.Int64, reflect.Int32:
		switch {
		case a.Int() < b.Int():
			return -1
		case a.Int() > b.Int():
			return 1
		}
	}
	return 0
}

// orderBy sorts the slice pointed to by items by orderings, then by the fallback columns.
func orderBy(items interface{}, orderings []core.DBOrdering, fallbacks ...core.DBOrdering) {
	rv := reflect.ValueOf(items).Elem()
	orderings = append(append([]core.DBOrdering(nil), orderings...), fallbacks...)
	sort.SliceStable(rv.Interface(), func(i, j int) bool {
		vi, vj := rv.Index(i), rv.Index(j)
		for _, ord := range orderings {
			ci, ok := column(vi, ord.Field)
			if !ok {
				continue
			}
			cj, _ := column(vj, ord.Field)
			c := compare(ci, cj)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

// matches reports whether any of fields contains search, ignoring case.
func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}
