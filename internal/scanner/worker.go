package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/maxvaer/dirgraph/internal/analyzer"
)

// WorkerConfig holds options for the worker pool.
type WorkerConfig struct {
	Threads   int           // number of workers, the admission gate size
	Throttler *Throttler    // nil = no delay
	Limiter   *rate.Limiter // nil = unlimited
	Pauser    *Pauser       // nil = no pause support
}

// RunWorkerPool fans out work items across cfg.Threads workers, or fewer
// when there are fewer items, and returns a channel of results in completion order. The channel is closed
// when all workers have exited. Once ctx is done no further results are sent.
func RunWorkerPool(
	ctx context.Context,
	req *Requester,
	items []WorkItem,
	cfg WorkerConfig,
) <-chan ScanResult {
	threads := poolSize(cfg.Threads, len(items))
	itemsCh := make(chan WorkItem, threads*2)
	resultsCh := make(chan ScanResult, threads*2)

	var wg sync.WaitGroup

	// Producer: feed items into channel.
	go func() {
		defer close(itemsCh)
		for _, item := range items {
			select {
			case itemsCh <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Workers: consume items, produce results.
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemsCh {
				if err := waitTurn(ctx, cfg); err != nil {
					return
				}

				result := runUnit(ctx, req, item, cfg.Throttler)
				if ctx.Err() != nil {
					return
				}

				select {
				case resultsCh <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Closer: when all workers finish, close the results channel.
	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	return resultsCh
}

// waitTurn blocks for pause, rate limit and throttle delay before a request.
// poolSize never starts more workers than there are items, nor fewer than one.
func poolSize(threads, items int) int {
	return max(1, min(threads, items))
}

func waitTurn(ctx context.Context, cfg WorkerConfig) error {
	if err := cfg.Pauser.Wait(ctx); err != nil {
		return err
	}
	if cfg.Limiter != nil {
		if err := cfg.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if delay := cfg.Throttler.Delay(); delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// runUnit performs one probe. Any panic is converted into a failed result so
// sibling units keep running.
func runUnit(ctx context.Context, req *Requester, item WorkItem, throttler *Throttler) (result ScanResult) {
	result.Item = item
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result.Result = nil
			result.Error = fmt.Errorf("probe %s panicked: %v", item.Path, r)
			result.Panicked = true
		}
		result.Duration = time.Since(start)
	}()

	resp, err := req.Do(ctx, item.Path)
	if err != nil {
		throttler.RecordError()
		result.Error = err
		return result
	}
	throttler.RecordStatus(resp.StatusCode)

	probe := &ProbeResult{
		URL:          resp.URL,
		Path:         item.Path,
		Status:       resp.StatusCode,
		RedirectedTo: resp.RedirectURL,
		Issues:       analyzer.Analyze(item.Path, resp.StatusCode, string(resp.Body)),
	}
	if resp.Size > 0 {
		size := resp.Size
		probe.Size = &size
	}
	if probe.Issues == nil {
		probe.Issues = []string{}
	}
	result.Result = probe
	return result
}
