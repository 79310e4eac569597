package recognize

// Result is the normalized output of one recognition attempt. Exactly one of
// "successful" or "errored" holds: an errored result carries empty text and
// zero confidence.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Err        string  `json:"error,omitempty"`
}

// Failed reports whether the recognition attempt errored.
func (r Result) Failed() bool { return r.Err != "" }

// Errored builds a failed result, enforcing the empty-text/zero-confidence
// invariant regardless of what the backend produced.
func Errored(msg string) Result {
	return Result{Err: msg}
}

// Recognized builds a successful result with confidence clamped to [0,1].
func Recognized(text string, confidence float64) Result {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Result{Text: text, Confidence: confidence}
}
