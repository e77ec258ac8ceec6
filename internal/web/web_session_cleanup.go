package web

import (
	"context"
	"log"
	"time"
)

// flashMaxAge drops flashes that were never displayed
const flashMaxAge = 30 * time.Minute

// cleanupFlashes removes flashes older than maxAge and returns how many were dropped
func cleanupFlashes(now time.Time, maxAge time.Duration) int {
	flashMessagesMu.Lock()
	defer flashMessagesMu.Unlock()
	dropped := 0
	for id, fm := range flashMessages {
		if now.Sub(fm.CreatedAt) > maxAge {
			delete(flashMessages, id)
			dropped++
		}
	}
	return dropped
}

// StartFlashCleanup starts a background goroutine expiring stale flash messages until ctx is done
func (s *WebServer) StartFlashCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := cleanupFlashes(now, flashMaxAge); n > 0 {
					log.Printf("%s Flash cleanup dropped %d stale messages", logPrefix, n)
				}
			}
		}
	}()

	log.Printf("%s Started flash cleanup background task", logPrefix)
}
