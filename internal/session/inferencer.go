package session

import (
	"context"

	"sketchwars/internal/inference"
)

// RemoteInferencer scores drawings through the model service. A headless
// client has no in-process model runtime, so the local preview path falls
// back to the same remote call the authoritative path uses.
type RemoteInferencer struct {
	client    *inference.Client
	roomID    string
	labelPair [2]string
}

func NewRemoteInferencer(client *inference.Client, roomID string, labelPair [2]string) *RemoteInferencer {
	return &RemoteInferencer{client: client, roomID: roomID, labelPair: labelPair}
}

// LoadModel warms the model service for this label pair. The onnx URL is
// only meaningful to in-browser runtimes and is ignored here.
func (r *RemoteInferencer) LoadModel(ctx context.Context, onnxURL string) error {
	return r.client.StartModel(ctx, r.labelPair)
}

func (r *RemoteInferencer) ClassifyLocal(ctx context.Context, previewDataURL string) ([]float64, error) {
	outputs, err := r.client.Infer(ctx, r.roomID, r.labelPair, previewDataURL)
	if err != nil {
		return nil, err
	}
	return outputs[:], nil
}

func (r *RemoteInferencer) ClassifyRemote(ctx context.Context, previewDataURL string, targetIndex int) ([]float64, error) {
	return r.ClassifyLocal(ctx, previewDataURL)
}

func (r *RemoteInferencer) RequestStroke(ctx context.Context, previewDataURL string, targetIndex int) error {
	return r.client.InferStroke(ctx, r.roomID, r.labelPair, targetIndex, previewDataURL)
}
