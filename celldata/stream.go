package celldata

import (
	"context"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Options tune the parallel passes over a table.
type Options struct {
	// Workers is the number of goroutines processing rows. Defaults to
	// GOMAXPROCS.
	Workers int

	// BatchSize is the number of rows handed to a worker at a time.
	BatchSize int
}

const defaultBatchSize = 1024

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.BatchSize < 1 {
		o.BatchSize = defaultBatchSize
	}

	return o
}

// fanOut reads t on one goroutine and hands batches of rows to opts.Workers
// goroutines running process. Row order across batches is not preserved.
func fanOut(ctx context.Context, t *Table, opts Options, process func(batch [][]string) error) error {
	g, ctx := errgroup.WithContext(ctx)
	batches := make(chan [][]string, opts.Workers)

	g.Go(func() error {
		defer close(batches)

		batch := make([][]string, 0, opts.BatchSize)
		for {
			record, err := t.Next()
			if err == io.EOF {
				break
			} else if err != nil {
				return err
			}

			batch = append(batch, record)
			if len(batch) < opts.BatchSize {
				continue
			}

			select {
			case batches <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
			batch = make([][]string, 0, opts.BatchSize)
		}

		if len(batch) == 0 {
			return nil
		}

		select {
		case batches <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}

		return nil
	})

	for i := 0; i < opts.Workers; i++ {
		g.Go(func() error {
			for batch := range batches {
				if err := process(batch); err != nil {
					return err
				}
			}

			return nil
		})
	}

	return g.Wait()
}
