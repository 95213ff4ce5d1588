// Package timex holds small time helpers shared by config and metrics code.
package timex

import (
	"errors"
	"time"

	"github.com/goccy/go-json"
)

// Duration wraps time.Duration so it can be read from JSON either as a
// string such as "15m" or as an integer number of nanoseconds.
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("invalid duration")
	}
}

// MarshalJSON renders the duration in its string form.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Clock returns the current time. Components take one so tests can pin time.
type Clock func() time.Time

// Now is the production clock.
func Now() time.Time { return time.Now() }
