package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const dateLayout = "2006-01-02"

var errInvalidDate = errors.New("invalid date")

// Date is a calendar date coerced from either "2006-01-02" or RFC3339 strings.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return NewDate(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return NewDate(t), nil
	}
	return Date{}, errInvalidDate
}

// UnmarshalParam implements echo.BindUnmarshaler.
func (d *Date) UnmarshalParam(param string) error {
	parsed, err := ParseDate(param)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errInvalidDate
	}
	return d.UnmarshalParam(s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

// NumID is a numeric identifier that also accepts numeric strings, as sent by html forms.
type NumID int

func (n *NumID) UnmarshalParam(param string) error {
	param = strings.TrimSpace(param)
	if param == "" {
		*n = 0
		return nil
	}
	i, err := strconv.Atoi(param)
	if err != nil {
		return errors.Wrapf(err, "parsing %q", param)
	}
	*n = NumID(i)
	return nil
}

func (n *NumID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return n.UnmarshalParam(s)
	}
	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return err
	}
	*n = NumID(i)
	return nil
}

// Ints converts ids to plain ints.
func Ints(ids []NumID) []int {
	if ids == nil {
		return nil
	}
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		out = append(out, int(id))
	}
	return out
}

var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}

// Timestamp is a point in time coerced from RFC3339 or html datetime-local strings (read as UTC).
type Timestamp struct {
	time.Time
}

func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{t.UTC()}, nil
		}
	}
	return Timestamp{}, errors.New("invalid timestamp")
}

// UnmarshalParam implements echo.BindUnmarshaler.
func (ts *Timestamp) UnmarshalParam(param string) error {
	parsed, err := ParseTimestamp(param)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*ts = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return ts.UnmarshalParam(s)
}
