package utils

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yukikurage/team-task-api/internal/constants"
)

// Date accepts either a calendar day ("2024-03-01") or an RFC 3339
// timestamp. An empty string decodes to the zero time.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(constants.DateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q", s)
	}
	d.Time = t
	return nil
}

// Ptr returns nil for the zero date.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// OptionalTime converts an optional date into an optional time, mapping an
// empty date to null.
func OptionalTime(o Optional[Date]) Optional[time.Time] {
	if !o.Set {
		return Optional[time.Time]{}
	}
	if t := o.Value.Ptr(); t != nil {
		return Some(*t)
	}
	return Null[time.Time]()
}
