package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const minutesPerDay = 24 * 60

// Clock is a time of day expressed in minutes since midnight.
// Fractional minutes are kept so that travel times do not drift when summed.
type Clock float64

// ParseClock parses an "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// MustClock parses an "HH:MM" string and panics on malformed input.
// Only used for compile-time constants.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockAt builds a clock from hour and minute.
func ClockAt(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// Add advances the clock, wrapping past midnight.
func (c Clock) Add(minutes float64) Clock {
	v := math.Mod(float64(c)+minutes, minutesPerDay)
	if v < 0 {
		v += minutesPerDay
	}
	return Clock(v)
}

// MinutesUntil returns the minutes from c until end, or 0 when end is not after c.
func (c Clock) MinutesUntil(end Clock) float64 {
	return math.Max(0, float64(end-c))
}

// Hour returns the hour component.
func (c Clock) Hour() int {
	return int(float64(c)) / 60
}

// Minutes returns minutes since midnight as a float.
func (c Clock) Minutes() float64 {
	return float64(c)
}

func (c Clock) String() string {
	total := int(float64(c))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Within reports whether c lies inside the inclusive window [start, end].
func (c Clock) Within(start, end Clock) bool {
	return start <= c && c <= end
}

// WithinWindow checks c against an "HH:MM-HH:MM" window. A malformed
// bound makes the check fail; callers decide how to treat empty windows.
func (c Clock) WithinWindow(window string) bool {
	start, end, ok := ParseWindow(window)
	if !ok {
		return false
	}
	return c.Within(start, end)
}

// ParseWindow splits an "HH:MM-HH:MM" string.
func ParseWindow(window string) (Clock, Clock, bool) {
	parts := strings.SplitN(window, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return 0, 0, false
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// MarshalJSON encodes the clock as "HH:MM".
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts "HH:MM" strings or raw minute numbers.
func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseClock(s)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid clock value %s", string(data))
	}
	*c = Clock(f)
	return nil
}

// DateLayout is the calendar date format used across the API.
const DateLayout = "2006-01-02"

// UnmarshalYAML accepts "HH:MM" scalars in request files.
func (c *Clock) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseClock(value.Value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
