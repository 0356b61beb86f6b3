package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPClassifier calls the external classification service. The service
// takes a title/summary pair and answers with event labels and a confidence
// score; anything it cannot place comes back labeled "other".
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

func NewHTTPClassifier(endpoint string, timeout time.Duration, log zerolog.Logger) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      log.With().Str("component", "http_classifier").Logger(),
	}
}

type classifyRequest struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type classifyResponse struct {
	Labels     []string `json:"labels"`
	Confidence float64  `json:"confidence"`
}

func (h *HTTPClassifier) Classify(ctx context.Context, title, summary string) (*Classification, error) {
	body, err := json.Marshal(classifyRequest{Title: title, Summary: summary})
	if err != nil {
		return nil, fmt.Errorf("encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned %d", resp.StatusCode)
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode classify response: %w", err)
	}
	return &Classification{Labels: out.Labels, Confidence: out.Confidence}, nil
}

var _ EventClassifier = (*HTTPClassifier)(nil)
