package service

import (
	"context"
	"sync"
)

// forEachIndexed runs fn for 0..n-1 on up to workers goroutines. fn writes its
// result into slot i of a caller-owned slice, so output order never depends on
// completion order. workers <= 1 runs sequentially on the calling goroutine.
//
// Once ctx is done the remaining indexes are skipped. The returned slice marks
// the slots fn actually filled; pass it to filled before using the results.
func forEachIndexed(ctx context.Context, workers, n int, fn func(ctx context.Context, i int)) []bool {
	done := make([]bool, n)
	if workers <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				break
			}
			fn(ctx, i)
			done[i] = true
		}
		return done
	}
	if workers > n {
		workers = n
	}

	indices := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				if ctx.Err() != nil {
					continue
				}
				fn(ctx, i)
				done[i] = true
			}
		}()
	}

	for i := 0; i < n; i++ {
		indices <- i
	}
	close(indices)
	wg.Wait()
	return done
}

// filled keeps the items whose slot ran, preserving index order.
func filled[T any](items []T, done []bool) []T {
	out := items[:0]
	for i, item := range items {
		if done[i] {
			out = append(out, item)
		}
	}
	return out
}
