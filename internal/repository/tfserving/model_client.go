package tfserving

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ModelClient calls a TensorFlow Serving REST endpoint. It is the service's
// only contact with the trained model, which stays a black box behind
// the :predict API. Safe for concurrent use.
type ModelClient struct {
	BaseURL    string
	ModelName  string
	HTTPClient *http.Client
}

func NewModelClient(baseURL, modelName string, timeout time.Duration) *ModelClient {
	return &ModelClient{
		BaseURL:    baseURL,
		ModelName:  modelName,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	Instances [][][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions json.RawMessage `json:"predictions"`
	Error       string          `json:"error"`
}

// Predict sends one [batch, seq, features] tensor and returns one scaled
// score per window. Serving may answer with shape [batch, 1] or [batch];
// both are flattened.
func (c *ModelClient) Predict(ctx context.Context, instances [][][]float64) ([]float64, error) {
	payload, err := json.Marshal(predictRequest{Instances: instances})
	if err != nil {
		return nil, fmt.Errorf("marshal predict request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/models/%s:predict", c.BaseURL, c.ModelName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model server request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read model server response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model server status %d: %s", resp.StatusCode, string(body))
	}

	var pr predictResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("decode model server response: %w", err)
	}
	if pr.Error != "" {
		return nil, fmt.Errorf("model server error: %s", pr.Error)
	}

	return flattenScores(pr.Predictions, len(instances))
}

func flattenScores(raw json.RawMessage, want int) ([]float64, error) {
	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err == nil {
		scores := make([]float64, len(nested))
		for i, row := range nested {
			if len(row) != 1 {
				return nil, fmt.Errorf("prediction row %d has %d values, want 1", i, len(row))
			}
			scores[i] = row[0]
		}
		return checkCount(scores, want)
	}

	var flat []float64
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("unexpected predictions shape: %s", string(raw))
	}
	return checkCount(flat, want)
}

func checkCount(scores []float64, want int) ([]float64, error) {
	if len(scores) != want {
		return nil, fmt.Errorf("got %d predictions for %d windows", len(scores), want)
	}
	return scores, nil
}
