// Package inference consumes the external model service. The service owns
// the classifiers; this client only requests scores and AI strokes and
// manages per-label-pair model lifecycle.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is a model service API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type inferRequest struct {
	LabelPair    [2]string `json:"label_pair"`
	ImageDataURL string    `json:"imageDataUrl"`
}

type inferResponse struct {
	ModelOutputs []float64 `json:"modelOutputs"`
}

type inferStrokeRequest struct {
	LabelPair    [2]string `json:"label_pair"`
	TargetIndex  int       `json:"targetIndex"`
	ImageDataURL string    `json:"imageDataUrl"`
	RoomID       string    `json:"roomId"`
}

type modelLifecycleRequest struct {
	LabelPair [2]string `json:"label_pair"`
}

// Infer scores a drawing snapshot against the room's label pair.
func (c *Client) Infer(ctx context.Context, roomID string, labelPair [2]string, imageDataURL string) ([2]float64, error) {
	body := inferRequest{LabelPair: labelPair, ImageDataURL: imageDataURL}

	var resp inferResponse
	if err := c.post(ctx, "/infer", roomID, body, &resp); err != nil {
		return [2]float64{}, err
	}
	if len(resp.ModelOutputs) != 2 {
		return [2]float64{}, fmt.Errorf("model service returned %d outputs; want 2", len(resp.ModelOutputs))
	}

	return [2]float64{resp.ModelOutputs[0], resp.ModelOutputs[1]}, nil
}

// InferStroke asks the service to compute a stroke for the AI seat. The
// computation runs for tens of seconds; the result does not come back on
// this call but is pushed to the game server's ai-stroke callback and
// relayed to the room from there.
func (c *Client) InferStroke(ctx context.Context, roomID string, labelPair [2]string, targetIndex int, imageDataURL string) error {
	body := inferStrokeRequest{
		LabelPair:    labelPair,
		TargetIndex:  targetIndex,
		ImageDataURL: imageDataURL,
		RoomID:       roomID,
	}
	return c.post(ctx, "/infer_stroke", roomID, body, nil)
}

// StartModel asks the service to load the classifier for a label pair.
func (c *Client) StartModel(ctx context.Context, labelPair [2]string) error {
	return c.post(ctx, "/start_model", "", modelLifecycleRequest{LabelPair: labelPair}, nil)
}

// StopModel releases the classifier for a label pair.
func (c *Client) StopModel(ctx context.Context, labelPair [2]string) error {
	return c.post(ctx, "/stop_model", "", modelLifecycleRequest{LabelPair: labelPair}, nil)
}

func (c *Client) post(ctx context.Context, path, roomID string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if roomID != "" {
		req.Header.Set("Room-Id", roomID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("model service %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("model service %s: status %d", path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}
