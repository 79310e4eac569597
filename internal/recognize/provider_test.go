package recognize

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackend is a canned localBackend.
type stubBackend struct {
	text  string
	conf  float64
	err   error
	calls int
}

func (s *stubBackend) recognize(_ context.Context, _ []byte) (string, float64, error) {
	s.calls++
	return s.text, s.conf, s.err
}

// panicBackend always panics, standing in for a misbehaving cgo layer.
type panicBackend struct{}

func (panicBackend) recognize(_ context.Context, _ []byte) (string, float64, error) {
	panic("segfault in native code")
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRecognize_LocalStrategy(t *testing.T) {
	stub := &stubBackend{text: "ABC 123 GP", conf: 0.85}
	p := NewProvider(Config{})
	p.local = stub

	res := p.Recognize(context.Background(), StrategyLocal, Input{Data: testPNG(t)})

	require.False(t, res.Failed())
	assert.Equal(t, "ABC 123 GP", res.Text)
	assert.InDelta(t, 0.85, res.Confidence, 1e-9)
	assert.Equal(t, 1, stub.calls)
}

func TestRecognize_LocalBackendError(t *testing.T) {
	stub := &stubBackend{err: errors.New(ErrNotInstalled)}
	p := NewProvider(Config{})
	p.local = stub

	res := p.Recognize(context.Background(), StrategyLocal, Input{Data: testPNG(t)})

	assert.True(t, res.Failed())
	assert.Equal(t, ErrNotInstalled, res.Err)
}

func TestRecognize_RemoteStrategy(t *testing.T) {
	var gotKey string
	var gotReq annotateRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(annotateResponse{
			Responses: []imageResponse{{
				FullTextAnnotation: &fullTextAnnotation{
					Text: "INVOICE #45213",
					Pages: []struct {
						Confidence float64 `json:"confidence"`
					}{{Confidence: 0.97}},
				},
			}},
		})
	}))
	defer ts.Close()

	stub := &stubBackend{text: "local", conf: 0.1}
	p := NewProvider(Config{RemoteEndpoint: ts.URL, APIKey: "secret"})
	p.local = stub

	res := p.Recognize(context.Background(), StrategyRemote, Input{Data: testPNG(t)})

	require.False(t, res.Failed())
	assert.Equal(t, "INVOICE #45213", res.Text)
	assert.InDelta(t, 0.97, res.Confidence, 1e-9)
	assert.Zero(t, stub.calls, "remote success must not touch the local backend")

	assert.Equal(t, "secret", gotKey)
	require.Len(t, gotReq.Requests, 1)
	require.Len(t, gotReq.Requests[0].Features, 1)
	assert.Equal(t, "TEXT_DETECTION", gotReq.Requests[0].Features[0].Type)
	_, err := base64.StdEncoding.DecodeString(gotReq.Requests[0].Image.Content)
	assert.NoError(t, err, "image content must be valid base64")
}

func TestRecognize_RemoteFallsBackOnServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	stub := &stubBackend{text: "local text", conf: 0.6}
	p := NewProvider(Config{RemoteEndpoint: ts.URL, APIKey: "secret"})
	p.local = stub

	res := p.Recognize(context.Background(), StrategyRemote, Input{Data: testPNG(t)})

	require.False(t, res.Failed(), "fallback must hide the remote failure")
	assert.Equal(t, "local text", res.Text)
	assert.Equal(t, 1, stub.calls)
}

func TestRecognize_RemoteFallsBackOnMalformedPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer ts.Close()

	stub := &stubBackend{text: "local text", conf: 0.6}
	p := NewProvider(Config{RemoteEndpoint: ts.URL, APIKey: "secret"})
	p.local = stub

	res := p.Recognize(context.Background(), StrategyRemote, Input{Data: testPNG(t)})

	require.False(t, res.Failed())
	assert.Equal(t, "local text", res.Text)
}

func TestRecognize_RemoteWithoutKeyUsesLocal(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	stub := &stubBackend{text: "local text", conf: 0.6}
	p := NewProvider(Config{RemoteEndpoint: ts.URL})
	p.local = stub

	res := p.Recognize(context.Background(), StrategyRemote, Input{Data: testPNG(t)})

	require.False(t, res.Failed())
	assert.Equal(t, "local text", res.Text)
	assert.False(t, called, "a missing key is a routing decision, not a request")
}

func TestRecognize_UndecodableImage(t *testing.T) {
	p := NewProvider(Config{})
	p.local = &stubBackend{}

	res := p.Recognize(context.Background(), StrategyLocal, Input{Data: []byte("garbage")})

	assert.True(t, res.Failed())
	assert.Contains(t, res.Err, "decode image")
}

func TestRecognize_NoInput(t *testing.T) {
	p := NewProvider(Config{})
	p.local = &stubBackend{}

	res := p.Recognize(context.Background(), StrategyLocal, Input{})

	assert.True(t, res.Failed())
}

func TestRecognize_BackendPanicIsContained(t *testing.T) {
	p := NewProvider(Config{})
	p.local = panicBackend{}

	res := p.Recognize(context.Background(), StrategyLocal, Input{Data: testPNG(t)})

	assert.True(t, res.Failed())
	assert.Contains(t, res.Err, "recognition failed")
}

func TestPageConfidence(t *testing.T) {
	t.Run("defaults when no pages", func(t *testing.T) {
		assert.InDelta(t, defaultRemoteConfidence, pageConfidence(&fullTextAnnotation{}), 1e-9)
	})

	t.Run("averages pages", func(t *testing.T) {
		a := &fullTextAnnotation{Pages: []struct {
			Confidence float64 `json:"confidence"`
		}{{Confidence: 0.8}, {Confidence: 1.0}}}
		assert.InDelta(t, 0.9, pageConfidence(a), 1e-9)
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NotEmpty(t, cfg.RemoteEndpoint)
	assert.Equal(t, []string{"eng"}, cfg.Languages)
	assert.Equal(t, 30, cfg.TimeoutSec)
}
