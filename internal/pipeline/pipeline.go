// Package pipeline orchestrates recognition and extraction. It is the only
// layer aware of concurrency; no error from a dependency escapes its public
// entry points.
package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fleetlens/fleetlens/internal/extract"
	"github.com/fleetlens/fleetlens/internal/reconcile"
	"github.com/fleetlens/fleetlens/internal/recognize"
)

// State describes the lifecycle of the most recent logical operation.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Recognizer is the provider contract the pipeline depends on.
type Recognizer interface {
	Recognize(ctx context.Context, strategy recognize.Strategy, in recognize.Input) recognize.Result
}

// ProgressFunc receives (completed, total) updates during batch processing.
type ProgressFunc func(done, total int)

// Options configures a pipeline instance.
type Options struct {
	// Strategy selects the preferred recognition backend per call.
	Strategy recognize.Strategy
	// MaxWorkers bounds batch concurrency (0 = one worker per image).
	MaxWorkers int
	// OnProgress, when set, is called after each image of a batch completes.
	OnProgress ProgressFunc
}

// Pipeline wires a recognition provider to one extraction schema and tracks
// a processing-state view for callers.
type Pipeline[T reconcile.Mergeable[T]] struct {
	recognizer Recognizer
	extractFn  func(string) T
	opts       Options

	mu    sync.Mutex
	state State
}

// New builds a pipeline over an arbitrary extraction schema.
func New[T reconcile.Mergeable[T]](r Recognizer, extractFn func(string) T, opts Options) *Pipeline[T] {
	if opts.Strategy == "" {
		opts.Strategy = recognize.StrategyLocal
	}
	return &Pipeline[T]{
		recognizer: r,
		extractFn:  extractFn,
		opts:       opts,
		state:      StateIdle,
	}
}

// NewVehicle builds a pipeline producing vehicle extraction records.
func NewVehicle(r Recognizer, opts Options) *Pipeline[extract.Vehicle] {
	return New(r, extract.ExtractVehicle, opts)
}

// NewDocument builds a pipeline producing document extraction records.
func NewDocument(r Recognizer, opts Options) *Pipeline[extract.Document] {
	return New(r, extract.ExtractDocument, opts)
}

// State returns the current processing state.
func (p *Pipeline[T]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Reset returns the pipeline to idle.
func (p *Pipeline[T]) Reset() {
	p.setState(StateIdle)
}

func (p *Pipeline[T]) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// ProcessOne recognizes a single image and extracts fields from its text.
// A failed recognition yields the zero record alongside the errored result.
func (p *Pipeline[T]) ProcessOne(ctx context.Context, in recognize.Input) (T, recognize.Result) {
	p.setState(StateProcessing)

	res := p.recognizer.Recognize(ctx, p.opts.Strategy, in)
	var fields T
	if res.Failed() {
		slog.Debug("Recognition failed", "error", res.Err)
		p.setState(StateFailed)
		return fields, res
	}

	fields = p.extractFn(res.Text)
	p.setState(StateSucceeded)
	return fields, res
}

// ProcessMany recognizes all images concurrently, extracts fields per image
// and reconciles everything into one merged record. A single failing image
// never aborts the batch: it is substituted with a zero-confidence errored
// stand-in so list length and order are preserved for the merge.
func (p *Pipeline[T]) ProcessMany(ctx context.Context, ins []recognize.Input) reconcile.Merged[T] {
	p.setState(StateProcessing)

	results := p.recognizeAll(ctx, ins)

	items := make([]reconcile.Item[T], len(results))
	succeeded := 0
	for i, res := range results {
		items[i].Recognition = res
		if res.Failed() {
			continue
		}
		succeeded++
		items[i].Fields = p.extractFn(res.Text)
	}

	merged := reconcile.Combine(items)
	if succeeded == 0 && len(ins) > 0 {
		p.setState(StateFailed)
	} else {
		p.setState(StateSucceeded)
	}
	slog.Debug("Batch reconciled",
		"inputs", len(ins), "succeeded", succeeded, "confidence", merged.Confidence)
	return merged
}
