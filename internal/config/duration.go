package config

import (
	"time"

	json "github.com/goccy/go-json"
)

// MillisDuration unmarshals a plain JSON integer as a count of
// milliseconds, matching the *_MS env-var naming in §6, while still being a
// time.Duration everywhere else in the daemon.
type MillisDuration time.Duration

func (m MillisDuration) Duration() time.Duration { return time.Duration(m) }

func (m MillisDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(time.Duration(m) / time.Millisecond))
}

func (m *MillisDuration) UnmarshalJSON(data []byte) error {
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	*m = MillisDuration(time.Duration(ms) * time.Millisecond)
	return nil
}
