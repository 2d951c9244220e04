package openphone

import (
	"context"
	"errors"
	"iter"

	"github.com/Sternrassler/openphone-client/pkg/pagination"
)

// Iter lazily walks a collection and decodes each record into T.
// Like the Paginator it wraps, it must be driven by one goroutine.
type Iter[T any] struct {
	p *pagination.Paginator
}

func newIter[T any](p *pagination.Paginator) *Iter[T] {
	return &Iter[T]{p: p}
}

// Next returns the next item or pagination.Done at the end of the collection.
func (it *Iter[T]) Next(ctx context.Context) (*T, error) {
	rec, err := it.p.Next(ctx)
	if err != nil {
		return nil, err
	}
	item := new(T)
	if err := decodeInto(rec, item); err != nil {
		return nil, err
	}
	return item, nil
}

// All adapts the iterator to a range-over-func sequence. Iteration stops
// after yielding the first error.
func (it *Iter[T]) All(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		for {
			item, err := it.Next(ctx)
			if errors.Is(err, pagination.Done) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Collect drains up to limit items (all when limit <= 0). Items gathered
// before an error are returned with it.
func (it *Iter[T]) Collect(ctx context.Context, limit int) ([]*T, error) {
	var out []*T
	for limit <= 0 || len(out) < limit {
		item, err := it.Next(ctx)
		if errors.Is(err, pagination.Done) {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}

// TotalItems returns the server's most recent totalItems hint.
func (it *Iter[T]) TotalItems() (int, bool) {
	return it.p.TotalItems()
}

// Paginator exposes the underlying raw paginator.
func (it *Iter[T]) Paginator() *pagination.Paginator {
	return it.p
}
