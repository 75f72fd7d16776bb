package utils

import (
	"log"
	"runtime/debug"
	"time"
)

// ToPointer returns a pointer to a copy of v.
func ToPointer[T any](v T) *T {
	return &v
}

// GoSafe runs fn in a goroutine and recovers from panics so a single bad task cannot kill the process.
func GoSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("recovered from panic: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// TimeNowUTC returns the current time in UTC.
func TimeNowUTC() time.Time {
	return time.Now().UTC()
}
