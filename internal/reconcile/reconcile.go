// Package reconcile combines several independent, possibly partial and
// possibly failed per-image extraction results into one best-effort record.
// It is generic over the extraction schema and deliberately single-threaded:
// inputs are walked strictly in submission order, which is what makes the
// output deterministic regardless of recognition completion order.
package reconcile

import (
	"strings"

	"github.com/fleetlens/fleetlens/internal/recognize"
)

// Mergeable is the schema contract: Merge returns the receiver with its
// empty fields filled from the argument (first-available wins).
type Mergeable[T any] interface {
	Merge(other T) T
}

// Item pairs one recognition attempt with the fields extracted from it.
type Item[T Mergeable[T]] struct {
	Recognition recognize.Result
	Fields      T
}

// Merged is the reconciled record for a batch of inputs.
type Merged[T Mergeable[T]] struct {
	Fields     T       `json:"fields" yaml:"fields"`
	FullText   string  `json:"full_text" yaml:"full_text"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Combine folds items in original input order. Confidence is the arithmetic
// mean over successful recognitions (zero when none succeeded). Errored
// items are excluded from field voting but still contribute their (empty)
// text to the newline-joined FullText, so list length and order survive.
func Combine[T Mergeable[T]](items []Item[T]) Merged[T] {
	var out Merged[T]
	texts := make([]string, len(items))
	var sum float64
	succeeded := 0

	for i, item := range items {
		texts[i] = item.Recognition.Text
		if item.Recognition.Failed() {
			continue
		}
		sum += item.Recognition.Confidence
		succeeded++
		out.Fields = out.Fields.Merge(item.Fields)
	}

	if succeeded > 0 {
		out.Confidence = sum / float64(succeeded)
	}
	out.FullText = strings.Join(texts, "\n")
	return out
}
