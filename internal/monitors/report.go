package monitors

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

// RunAll checks every probe concurrently and maps probe name to status.
// Failures are logged with their cause; callers only see the status.
func RunAll(ctx context.Context, probes []Probe, log *zap.SugaredLogger) map[string]string {
	results := make(map[string]string, len(probes))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, p := range probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()

			status := StatusOK
			if err := p.Check(ctx); err != nil {
				status = StatusUnavailable
				log.Warnw("health probe failed", "probe", p.Name(), "err", err)
			}

			mu.Lock()
			results[p.Name()] = status
			mu.Unlock()
		}(p)
	}

	wg.Wait()
	return results
}

// Healthy reports whether every check passed.
func Healthy(results map[string]string) bool {
	for _, status := range results {
		if status != StatusOK {
			return false
		}
	}
	return true
}
