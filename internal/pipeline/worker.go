package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// PartitionJob is one unit of work handed to the pool.
type PartitionJob[T any] struct {
	Key   string
	Items []T
}

// PartitionFunc processes one partition and returns its output.
type PartitionFunc[T any, R any] func(ctx context.Context, key string, items []T) (R, error)

// WorkerPool runs partition jobs on a bounded number of goroutines.
type WorkerPool struct {
	name        string
	workerCount int
}

func NewWorkerPool(name string, workerCount int) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &WorkerPool{name: name, workerCount: workerCount}
}

func (p *WorkerPool) WorkerCount() int {
	return p.workerCount
}

// RunPartitioned fans the partitions out across the pool. The returned slice
// is ordered by partition key, whatever order the workers finished in.
func RunPartitioned[T any, R any](ctx context.Context, p *WorkerPool, parts map[string][]T, fn PartitionFunc[T, R]) ([]R, error) {
	keys := make([]string, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	startTime := time.Now()
	results := make([]R, len(keys))

	type indexedJob struct {
		index int
		job   PartitionJob[T]
	}

	workerCount := p.workerCount
	if workerCount > len(keys) {
		workerCount = len(keys)
	}

	jobChan := make(chan indexedJob, len(keys))
	errChan := make(chan error, workerCount)
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for ij := range jobChan {
				out, err := fn(ctx, ij.job.Key, ij.job.Items)
				if err != nil {
					log.Error().Err(err).
						Str("pool", p.name).
						Int("worker", workerID).
						Str("partition", ij.job.Key).
						Msg("partition failed")
					select {
					case errChan <- fmt.Errorf("partition %s: %w", ij.job.Key, err):
					default:
					}
					continue
				}
				results[ij.index] = out
			}
		}(i)
	}

	var enqueueErr error
enqueue:
	for i, k := range keys {
		select {
		case <-ctx.Done():
			enqueueErr = ctx.Err()
			break enqueue
		case jobChan <- indexedJob{index: i, job: PartitionJob[T]{Key: k, Items: parts[k]}}:
		}
	}
	close(jobChan)

	wg.Wait()
	close(errChan)

	if enqueueErr != nil {
		return nil, enqueueErr
	}
	if err := <-errChan; err != nil {
		return nil, err
	}

	log.Debug().
		Str("pool", p.name).
		Int("partitions", len(keys)).
		Int("workers", workerCount).
		Dur("elapsed", time.Since(startTime)).
		Msg("partitioned run completed")

	return results, nil
}
