package clock

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Layout is the textual form of sandbox instants in the store. It sorts
// lexicographically in time order, which trend queries rely on.
const Layout = "2006-01-02 15:04:05.000000"

// Stamp is a simulated instant: either a wall-style time or an integer tick.
//
// Stamp implements driver.Valuer and sql.Scanner so it can be bound to and
// read from created_at columns directly. Sandbox stamps are stored as text
// in Layout; tick stamps are stored as integers.
type Stamp struct {
	t      time.Time
	tick   int64
	ticked bool
}

// TimeStamp wraps a wall-style instant.
func TimeStamp(t time.Time) Stamp {
	return Stamp{t: t.UTC()}
}

// TickStamp wraps an integer tick.
func TickStamp(tick int64) Stamp {
	return Stamp{tick: tick, ticked: true}
}

// IsTick reports whether the stamp holds a tick.
func (s Stamp) IsTick() bool { return s.ticked }

// Tick returns the tick value (zero for time stamps).
func (s Stamp) Tick() int64 { return s.tick }

// Time returns the wall-style instant (zero for tick stamps).
func (s Stamp) Time() time.Time { return s.t }

// IsZero reports whether the stamp was never set.
func (s Stamp) IsZero() bool { return !s.ticked && s.t.IsZero() }

// Before orders two stamps of the same kind. Mixed kinds compare ticks
// before times.
func (s Stamp) Before(o Stamp) bool {
	switch {
	case s.ticked && o.ticked:
		return s.tick < o.tick
	case !s.ticked && !o.ticked:
		return s.t.Before(o.t)
	default:
		return s.ticked
	}
}

// Equal reports whether two stamps denote the same instant.
func (s Stamp) Equal(o Stamp) bool {
	if s.ticked != o.ticked {
		return false
	}
	if s.ticked {
		return s.tick == o.tick
	}
	return s.t.Equal(o.t)
}

// String renders the stamp as it is stored.
func (s Stamp) String() string {
	if s.ticked {
		return strconv.FormatInt(s.tick, 10)
	}
	return s.t.Format(Layout)
}

// Value implements driver.Valuer.
func (s Stamp) Value() (driver.Value, error) {
	if s.ticked {
		return s.tick, nil
	}
	return s.t.Format(Layout), nil
}

// Scan implements sql.Scanner.
func (s *Stamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = Stamp{}
	case int64:
		*s = TickStamp(v)
	case float64:
		*s = TickStamp(int64(v))
	case time.Time:
		*s = TimeStamp(v)
	case []byte:
		return s.parse(string(v))
	case string:
		return s.parse(v)
	default:
		return fmt.Errorf("clock: cannot scan %T into Stamp", src)
	}
	return nil
}

func (s *Stamp) parse(v string) error {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		*s = TickStamp(n)
		return nil
	}
	for _, layout := range []string{Layout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			*s = TimeStamp(t)
			return nil
		}
	}
	return fmt.Errorf("clock: unparseable stamp %q", v)
}

// MarshalJSON encodes ticks as numbers and times as Layout strings.
func (s Stamp) MarshalJSON() ([]byte, error) {
	if s.ticked {
		return strconv.AppendInt(nil, s.tick, 10), nil
	}
	return json.Marshal(s.t.Format(Layout))
}

// UnmarshalJSON accepts either form produced by MarshalJSON.
func (s *Stamp) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*s = TickStamp(n)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("clock: stamp must be number or string: %w", err)
	}
	return s.parse(str)
}
