package congestion

import "time"

// startTime anchors TSCClock's cycle counter so values stay small and
// monotonic for the lifetime of the process, without ever reading
// Go's wall-clock time (only its monotonic reading is used).
var startTime = time.Now()

func nowCycles() int64 {
	return int64(time.Since(startTime))
}
