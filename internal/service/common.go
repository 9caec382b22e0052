package service

import (
	"context"
	"time"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/metrics"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// Page selects a window of a listing. Pages start at 1.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the page and limit to their allowed ranges.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

// Offset is the number of records skipped before this page.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperrors.KindOf(err))
}

func observe(op string, start time.Time) {
	metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
