package session

import (
	"context"

	"sketchwars/internal/game"
)

// Inferencer scores drawing snapshots. Local classification runs in
// process when a model runtime is embedded; remote goes through the model
// service. RequestStroke only submits the computation: the stroke itself
// arrives later as an ai_stroke push on the realtime channel.
type Inferencer interface {
	LoadModel(ctx context.Context, onnxURL string) error
	ClassifyLocal(ctx context.Context, previewDataURL string) ([]float64, error)
	ClassifyRemote(ctx context.Context, previewDataURL string, targetIndex int) ([]float64, error)
	RequestStroke(ctx context.Context, previewDataURL string, targetIndex int) error
}

// Renderer is the presentation collaborator. Rendering itself is out of
// scope for the core; the session only pushes state at it.
type Renderer interface {
	Display(confidences []game.LabelConfidence)
	UpdateTurnIndicator(turnsLeft int, target string, myTurn bool)
	ShowWinner(target string)
	Notify(message string)
}

// DrawingSurface is the canvas collaborator. Coordinates are canvas
// pixels; snapshots travel as opaque data URLs.
type DrawingSurface interface {
	SetEnabled(enabled bool)
	SetCanvas(canvasDataURL string)
	CanvasDataURL() string
	PreviewDataURL() string
	BeginStroke(x, y float64)
	StrokeTo(x, y float64)
	EndStroke()
}

// Emitter sends client events back through the realtime channel.
type Emitter interface {
	Emit(eventType string, payload any) error
}

// StateStore persists small client-side values (the cached player id, the
// AI computation flag) across page reloads within a session. The backend
// decides the persistence scope.
type StateStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}
