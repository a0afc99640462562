package core

import "time"

// Clock supplies the current time. Services default to UTC wall-clock time;
// tests substitute a fixed clock to pin timestamps.
type Clock func() time.Time

// UTCNow is the default Clock.
func UTCNow() time.Time { return time.Now().UTC() }
