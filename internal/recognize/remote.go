package recognize

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// defaultRemoteConfidence is used when the remote service reports no page
// confidence of its own.
const defaultRemoteConfidence = 0.9

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imagePayload `json:"image"`
	Features []feature    `json:"features"`
}

type imagePayload struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

type annotateResponse struct {
	Responses []imageResponse `json:"responses"`
}

type imageResponse struct {
	FullTextAnnotation *fullTextAnnotation `json:"fullTextAnnotation"`
	Error              *remoteStatus       `json:"error"`
}

type fullTextAnnotation struct {
	Text  string `json:"text"`
	Pages []struct {
		Confidence float64 `json:"confidence"`
	} `json:"pages"`
}

type remoteStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// recognizeRemote posts the base64-encoded image to the configured
// text-detection endpoint. Any transport failure, non-2xx status or
// malformed payload is returned as an error so the caller can fall back.
func (p *Provider) recognizeRemote(ctx context.Context, png []byte) (string, float64, error) {
	body := annotateRequest{
		Requests: []imageRequest{{
			Image:    imagePayload{Content: base64.StdEncoding.EncodeToString(png)},
			Features: []feature{{Type: "TEXT_DETECTION"}},
		}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", 0, fmt.Errorf("encode request: %w", err)
	}

	url := p.cfg.RemoteEndpoint + "?key=" + p.cfg.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("remote call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, fmt.Errorf("remote status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("read response: %w", err)
	}

	var envelope annotateResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", 0, fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Responses) == 0 {
		return "", 0, fmt.Errorf("empty response envelope")
	}
	first := envelope.Responses[0]
	if first.Error != nil {
		return "", 0, fmt.Errorf("remote error %d: %s", first.Error.Code, first.Error.Message)
	}
	if first.FullTextAnnotation == nil {
		return "", 0, fmt.Errorf("response missing text annotation")
	}

	return first.FullTextAnnotation.Text, pageConfidence(first.FullTextAnnotation), nil
}

func pageConfidence(a *fullTextAnnotation) float64 {
	if len(a.Pages) == 0 {
		return defaultRemoteConfidence
	}
	var sum float64
	for _, p := range a.Pages {
		sum += p.Confidence
	}
	return sum / float64(len(a.Pages))
}
