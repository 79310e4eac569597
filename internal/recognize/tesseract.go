package recognize

import (
	"context"
	"errors"

	"github.com/otiai10/gosseract/v2"
)

// localBackend is the on-device recognition contract. Implementations return
// recognized text with a [0,1] confidence, or an error when recognition is
// impossible (including the backend not being installed at all).
type localBackend interface {
	recognize(ctx context.Context, png []byte) (string, float64, error)
}

// tesseractBackend recognizes text through gosseract. A client is acquired
// per call and released on every exit path.
type tesseractBackend struct {
	languages     []string
	clientFactory func() *gosseract.Client
	probe         func() error
}

func newTesseractBackend(languages []string) *tesseractBackend {
	return &tesseractBackend{
		languages:     languages,
		clientFactory: gosseract.NewClient,
		probe:         probeTesseract,
	}
}

// probeTesseract checks that the tesseract runtime and at least one trained
// language are present on the host.
func probeTesseract() error {
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return err
	}
	if len(langs) == 0 {
		return errors.New("no trained languages available")
	}
	return nil
}

func (t *tesseractBackend) recognize(ctx context.Context, png []byte) (string, float64, error) {
	if err := t.probe(); err != nil {
		return "", 0, errors.New(ErrNotInstalled)
	}
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	c := t.clientFactory()
	defer func() { _ = c.Close() }()

	if len(t.languages) > 0 {
		if err := c.SetLanguage(t.languages...); err != nil {
			return "", 0, err
		}
	}
	if err := c.SetImageFromBytes(png); err != nil {
		return "", 0, err
	}
	text, err := c.Text()
	if err != nil {
		return "", 0, err
	}
	return text, wordConfidence(c), nil
}

// wordConfidence averages per-word confidences reported by tesseract,
// rescaled from percent to [0,1]. Zero when no words were recognized.
func wordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}
