package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/viant/structgraph/encoding/json"
)

// Options defines batch behavior.
type Options struct {
	PoolSize int
	JSON     []json.Option
}

// Option mutates batch options.
type Option func(o *Options)

// WithPoolSize sets number of concurrent workers, GOMAXPROCS by default
func WithPoolSize(size int) Option {
	return func(o *Options) { o.PoolSize = size }
}

// WithJSONOptions sets options applied to every conversion
func WithJSONOptions(opts ...json.Option) Option {
	return func(o *Options) { o.JSON = append(o.JSON, opts...) }
}

func resolveOptions(opts []Option) *Options {
	ret := &Options{PoolSize: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.PoolSize <= 0 {
		ret.PoolSize = 1
	}
	return ret
}

// Marshal converts values concurrently, results keep the order of values;
// errors of individual values are joined
func Marshal(ctx context.Context, values []interface{}, opts ...Option) ([][]byte, error) {
	options := resolveOptions(opts)
	results := make([][]byte, len(values))
	err := run(ctx, len(values), options, func(i int) error {
		data, err := json.MarshalContext(ctx, values[i], options.JSON...)
		if err != nil {
			return err
		}
		results[i] = data
		return nil
	})
	return results, err
}

// Unmarshal decodes every document into the destination returned by newDest
func Unmarshal(ctx context.Context, documents [][]byte, newDest func(i int) interface{}, opts ...Option) ([]interface{}, error) {
	options := resolveOptions(opts)
	results := make([]interface{}, len(documents))
	err := run(ctx, len(documents), options, func(i int) error {
		dest := newDest(i)
		if err := json.UnmarshalContext(ctx, documents[i], dest, options.JSON...); err != nil {
			return err
		}
		results[i] = dest
		return nil
	})
	return results, err
}

func run(ctx context.Context, count int, options *Options, fn func(i int) error) error {
	if count == 0 {
		return nil
	}
	pool, err := ants.NewPool(options.PoolSize)
	if err != nil {
		return err
	}
	defer pool.Release()
	errs := make([]error, count)
	wg := sync.WaitGroup{}
	for i := 0; i < count; i++ {
		if err = ctx.Err(); err != nil {
			errs[i] = err
			break
		}
		index := i
		wg.Add(1)
		if err = pool.Submit(func() {
			defer wg.Done()
			if err := fn(index); err != nil {
				errs[index] = fmt.Errorf("item %d: %w", index, err)
			}
		}); err != nil {
			wg.Done()
			errs[i] = err
			break
		}
	}
	wg.Wait()
	return errors.Join(errs...)
}
