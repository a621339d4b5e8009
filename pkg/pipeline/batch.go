package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/vantage-health/visor/pkg/schema"
)

// InferAll scores a batch of records concurrently. Each call gets its own
// working buffers, so records fan out across workers safely. Output order
// matches input order; the first failing record aborts the batch. When
// workers is zero or negative, one worker per CPU is used.
func (p *Pipeline) InferAll(ctx context.Context, recs []schema.Record, threshold float64, workers int) ([]*Result, error) {
	if err := checkThreshold(threshold); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]*Result, len(recs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, rec := range recs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := p.Infer(rec, threshold)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
