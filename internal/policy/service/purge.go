package service

import (
	"context"
	"time"

	"github.com/ThomasGates3/ai-powered-iam/pkg/requestcontext"
)

// PurgeExpired removes expired records from stores that lack native expiry.
// Returns zero for stores that expire records themselves.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	p, ok := s.store.(Purger)
	if !ok {
		return 0, nil
	}
	start := time.Now()
	n, err := p.PurgeExpired(ctx, requestcontext.Now(ctx))
	s.observeStore("purge", start)
	return n, err
}

// SupportsPurge reports whether the store needs periodic purging.
func (s *Service) SupportsPurge() bool {
	_, ok := s.store.(Purger)
	return ok
}

// RunPurger calls PurgeExpired every interval until ctx is done. Failures are
// logged and the loop continues. Returns nil on cancellation.
func (s *Service) RunPurger(ctx context.Context, interval time.Duration) error {
	if !s.SupportsPurge() || interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "failed to purge expired policies", "error", err)
				continue
			}
			if n > 0 {
				s.logger.InfoContext(ctx, "purged expired policies", "count", n)
			}
		}
	}
}
