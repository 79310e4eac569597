package recognize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/disintegration/imaging"

	// Photographed documents show up in more formats than the stdlib decodes.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Strategy selects which recognition backend a call should prefer.
type Strategy string

const (
	StrategyLocal  Strategy = "local"
	StrategyRemote Strategy = "remote"
)

// ErrNotInstalled is the error string surfaced when the local OCR backend is
// missing from the host.
const ErrNotInstalled = "OCR library not installed"

// Input identifies one image to recognize: either a resolvable file path or
// an in-memory encoded payload. Data wins when both are set.
type Input struct {
	Path string
	Data []byte
}

// Config holds provider settings resolved from process-wide configuration.
type Config struct {
	// RemoteEndpoint is the text-detection service URL. Empty disables the
	// remote path regardless of strategy.
	RemoteEndpoint string `mapstructure:"remote_endpoint" yaml:"remote_endpoint" json:"remote_endpoint"`
	// APIKey authorizes remote calls. Absence is a routing decision, not an
	// error: calls silently run local-only.
	APIKey string `mapstructure:"api_key" yaml:"api_key" json:"api_key"`
	// Languages are hints passed to the local backend (e.g. "eng", "afr").
	Languages []string `mapstructure:"languages" yaml:"languages" json:"languages"`
	// Grayscale converts images before recognition; helps with noisy photos.
	Grayscale bool `mapstructure:"grayscale" yaml:"grayscale" json:"grayscale"`
	// TimeoutSec bounds a single remote call.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// DefaultConfig returns provider defaults.
func DefaultConfig() Config {
	return Config{
		RemoteEndpoint: "https://vision.googleapis.com/v1/images:annotate",
		Languages:      []string{"eng"},
		TimeoutSec:     30,
	}
}

// Provider routes recognition requests to a local or remote backend and
// normalizes every outcome into a Result. No error ever crosses its boundary.
type Provider struct {
	cfg        Config
	httpClient *http.Client
	local      localBackend
}

// NewProvider creates a provider with the tesseract local backend.
func NewProvider(cfg Config) *Provider {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		local:      newTesseractBackend(cfg.Languages),
	}
}

// Recognize runs one recognition attempt for the given input under the given
// strategy. Remote failures fall back to the local backend; the fallback is
// logged but invisible in the returned result.
func (p *Provider) Recognize(ctx context.Context, strategy Strategy, in Input) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recognition backend panicked", "panic", r)
			res = Errored(fmt.Sprintf("recognition failed: %v", r))
		}
	}()

	data, err := p.loadImage(in)
	if err != nil {
		return Errored(fmt.Sprintf("decode image: %v", err))
	}

	if strategy == StrategyRemote {
		if p.cfg.APIKey == "" || p.cfg.RemoteEndpoint == "" {
			slog.Debug("Remote backend not configured, using local", "has_key", p.cfg.APIKey != "")
		} else {
			text, confidence, rerr := p.recognizeRemote(ctx, data)
			if rerr == nil {
				return Recognized(text, confidence)
			}
			slog.Warn("Remote recognition failed, falling back to local", "error", rerr)
		}
	}

	text, confidence, lerr := p.local.recognize(ctx, data)
	if lerr != nil {
		return Errored(lerr.Error())
	}
	return Recognized(text, confidence)
}

// loadImage resolves the input into encoded PNG bytes, applying optional
// grayscale preprocessing. EXIF orientation is honored for file paths.
func (p *Provider) loadImage(in Input) ([]byte, error) {
	var img image.Image
	switch {
	case len(in.Data) > 0:
		decoded, _, err := image.Decode(bytes.NewReader(in.Data))
		if err != nil {
			return nil, err
		}
		img = decoded
	case in.Path != "":
		opened, err := imaging.Open(in.Path, imaging.AutoOrientation(true))
		if err != nil {
			return nil, err
		}
		img = opened
	default:
		return nil, errors.New("no image provided")
	}

	if p.cfg.Grayscale {
		img = imaging.Grayscale(img)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
