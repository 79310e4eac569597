package pipeline

import (
	"context"
	"sync"

	"github.com/fleetlens/fleetlens/internal/recognize"
)

// recognizeJob is a single recognition unit of work.
type recognizeJob struct {
	index int
	input recognize.Input
}

// recognizeOutcome tags a result with its submission index so the collector
// can restore original order.
type recognizeOutcome struct {
	index  int
	result recognize.Result
}

// recognizeAll dispatches one recognition per input across a worker pool and
// returns results in submission order. Every slot is filled: workers never
// surface errors (the provider normalizes them), and any slot left behind by
// context cancellation gets an errored stand-in.
func (p *Pipeline[T]) recognizeAll(ctx context.Context, ins []recognize.Input) []recognize.Result {
	if len(ins) == 0 {
		return nil
	}

	workers := p.opts.MaxWorkers
	if workers <= 0 || workers > len(ins) {
		workers = len(ins)
	}

	jobs := make(chan recognizeJob, len(ins))
	outcomes := make(chan recognizeOutcome, len(ins))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go p.recognizeWorker(ctx, jobs, outcomes, &wg)
	}

	for i, in := range ins {
		jobs <- recognizeJob{index: i, input: in}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	results := make([]recognize.Result, len(ins))
	filled := make([]bool, len(ins))
	done := 0
	for out := range outcomes {
		results[out.index] = out.result
		filled[out.index] = true
		done++
		if p.opts.OnProgress != nil {
			p.opts.OnProgress(done, len(ins))
		}
	}

	for i := range results {
		if !filled[i] {
			results[i] = recognize.Errored("recognition canceled")
		}
	}
	return results
}

// recognizeWorker drains the jobs channel. It stops picking up new jobs once
// the context is canceled but always finishes the job in hand.
func (p *Pipeline[T]) recognizeWorker(
	ctx context.Context,
	jobs <-chan recognizeJob,
	outcomes chan<- recognizeOutcome,
	wg *sync.WaitGroup,
) {
	defer wg.Done()

	for job := range jobs {
		if err := ctx.Err(); err != nil {
			outcomes <- recognizeOutcome{index: job.index, result: recognize.Errored("recognition canceled")}
			continue
		}
		res := p.recognizer.Recognize(ctx, p.opts.Strategy, job.input)
		outcomes <- recognizeOutcome{index: job.index, result: res}
	}
}
