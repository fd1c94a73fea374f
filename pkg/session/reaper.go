package session

import (
	"log/slog"
	"time"
)

// startReaper launches a goroutine that closes sessions idle for longer
// than idle. It stops when the router is closed.
func (rt *Router) startReaper(idle, interval time.Duration) {
	rt.reaperDone = make(chan struct{})

	go func() {
		defer close(rt.reaperDone)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-rt.baseCtx.Done():
				return
			case now := <-ticker.C:
				if n := rt.reapIdle(now, idle); n > 0 {
					slog.Info("session: reaped idle sessions", "count", n)
				}
			}
		}
	}()
}

// reapIdle closes the transport of every session with no in-flight
// requests whose last activity is older than idle. Deregistration follows
// from the transport's closure. It returns the number of sessions closed.
func (rt *Router) reapIdle(now time.Time, idle time.Duration) int {
	cutoff := now.Add(-idle)
	closed := 0
	for _, sess := range rt.registry.snapshot() {
		if sess.InFlight() > 0 || sess.LastActive().After(cutoff) {
			continue
		}
		if err := sess.Transport.Close(); err != nil {
			slog.Debug("session: idle close failed", slogKeySessionID, sess.ID, slogKeyError, err)
			continue
		}
		closed++
	}
	return closed
}
