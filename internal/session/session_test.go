package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"sketchwars/internal/game"
	"sketchwars/internal/logger"
	"sketchwars/internal/wire"
)

type fakeInferencer struct {
	mu         sync.Mutex
	block      chan struct{}
	outputs    []float64
	classified int
	strokeReqs chan int
}

func newFakeInferencer() *fakeInferencer {
	return &fakeInferencer{
		outputs:    []float64{0.3, 0.7},
		strokeReqs: make(chan int, 4),
	}
}

func (f *fakeInferencer) LoadModel(ctx context.Context, onnxURL string) error { return nil }

func (f *fakeInferencer) ClassifyLocal(ctx context.Context, preview string) ([]float64, error) {
	f.mu.Lock()
	f.classified++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return f.outputs, nil
}

func (f *fakeInferencer) ClassifyRemote(ctx context.Context, preview string, targetIndex int) ([]float64, error) {
	return f.ClassifyLocal(ctx, preview)
}

func (f *fakeInferencer) RequestStroke(ctx context.Context, preview string, targetIndex int) error {
	f.strokeReqs <- targetIndex
	return nil
}

func (f *fakeInferencer) classifyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.classified
}

type fakeRenderer struct {
	mu        sync.Mutex
	displays  chan []game.LabelConfidence
	winner    string
	notices   []string
	turnsLeft int
	myTurn    bool
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{displays: make(chan []game.LabelConfidence, 16)}
}

func (f *fakeRenderer) Display(c []game.LabelConfidence) { f.displays <- c }

func (f *fakeRenderer) UpdateTurnIndicator(turnsLeft int, target string, myTurn bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turnsLeft = turnsLeft
	f.myTurn = myTurn
}

func (f *fakeRenderer) ShowWinner(target string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.winner = target
}

func (f *fakeRenderer) Notify(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, message)
}

type fakeSurface struct {
	mu      sync.Mutex
	enabled bool
	strokes int
	ended   int
}

func (f *fakeSurface) SetEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = enabled
}

func (f *fakeSurface) SetCanvas(string) {}

func (f *fakeSurface) CanvasDataURL() string { return "data:canvas" }

func (f *fakeSurface) PreviewDataURL() string { return "data:preview" }

func (f *fakeSurface) BeginStroke(x, y float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strokes++
}

func (f *fakeSurface) StrokeTo(x, y float64) {}

func (f *fakeSurface) EndStroke() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended++
}

func (f *fakeSurface) isEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []wire.Envelope
}

func (f *fakeEmitter) Emit(eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, wire.Envelope{Type: eventType, Payload: raw})
	return nil
}

func (f *fakeEmitter) byType(eventType string) []wire.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []wire.Envelope
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func envOf(t *testing.T, eventType string, payload any) wire.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s: %v", eventType, err)
	}
	return wire.Envelope{Type: eventType, Payload: raw}
}

func newTestSession(t *testing.T, mode game.Mode) (*Session, *fakeInferencer, *fakeRenderer, *fakeSurface, *fakeEmitter) {
	t.Helper()
	inf := newFakeInferencer()
	ren := newFakeRenderer()
	surf := &fakeSurface{}
	em := &fakeEmitter{}

	s := New(Config{
		RoomID:               "room-1",
		Mode:                 mode,
		DistancePerTurn:      40,
		SoftmaxFactor:        7,
		CanvasSize:           100,
		AIStrokeTimeout:      time.Second,
		StrokeReplayDuration: 10 * time.Millisecond,
	}, inf, ren, surf, NewMemoryStore(), logger.Get())
	s.Bind(em)
	return s, inf, ren, surf, em
}

func startOnlineGame(t *testing.T, s *Session) {
	t.Helper()
	s.HandleEvent(envOf(t, wire.EventAssignPlayer, wire.AssignPlayer{PlayerID: "p1"}))
	s.HandleEvent(envOf(t, wire.EventStartGame, wire.StartGame{
		Targets:       map[string]string{"p1": "duck", "p2": "pig"},
		TargetIndices: map[string]int{"p1": 0, "p2": 1},
		TotalNumTurns: 10,
	}))
}

func TestTurnHandoffTogglesDrawing(t *testing.T) {
	s, _, ren, surf, _ := newTestSession(t, game.ModeOnline)
	startOnlineGame(t, s)

	s.HandleEvent(envOf(t, wire.EventStartTurn, wire.StartTurn{Turn: "p1", TurnsLeft: 10, Target: "duck"}))
	if !surf.isEnabled() {
		t.Fatal("drawing should enable on the local player's turn")
	}
	if got := s.BudgetRemaining(); got != 40 {
		t.Fatalf("budget should reset to 40, got %v", got)
	}
	if !ren.myTurn {
		t.Fatal("turn indicator should mark the local turn")
	}

	s.HandleEvent(envOf(t, wire.EventStartTurn, wire.StartTurn{Turn: "p2", TurnsLeft: 9, Target: "pig"}))
	if surf.isEnabled() {
		t.Fatal("drawing should disable on the opponent's turn")
	}
	if got := s.BudgetRemaining(); got != 0 {
		t.Fatalf("budget should empty on the opponent's turn, got %v", got)
	}
}

func TestStartTurnBeforeStartGameIgnored(t *testing.T) {
	s, _, _, surf, _ := newTestSession(t, game.ModeOnline)
	s.HandleEvent(envOf(t, wire.EventAssignPlayer, wire.AssignPlayer{PlayerID: "p1"}))

	s.HandleEvent(envOf(t, wire.EventStartTurn, wire.StartTurn{Turn: "p1", TurnsLeft: 10}))
	if surf.isEnabled() {
		t.Fatal("start_turn before start_game must not enable drawing")
	}
	if s.Phase() != PhaseWaitingForPlayers {
		t.Fatalf("phase = %s, want %s", s.Phase(), PhaseWaitingForPlayers)
	}
}

func TestEndGameMidTurnIsFinal(t *testing.T) {
	s, _, ren, surf, _ := newTestSession(t, game.ModeOnline)
	startOnlineGame(t, s)
	s.HandleEvent(envOf(t, wire.EventStartTurn, wire.StartTurn{Turn: "p1", TurnsLeft: 7, Target: "duck"}))

	s.HandleEvent(envOf(t, wire.EventEndGame, wire.EndGame{WinnerTarget: "pig"}))
	if s.Phase() != PhaseEnded {
		t.Fatalf("phase = %s, want %s", s.Phase(), PhaseEnded)
	}
	if surf.isEnabled() {
		t.Fatal("drawing must disable when the game ends")
	}
	if ren.winner != "pig" {
		t.Fatalf("winner = %q, want pig", ren.winner)
	}

	// late turn events must not revive the game
	s.HandleEvent(envOf(t, wire.EventStartTurn, wire.StartTurn{Turn: "p1", TurnsLeft: 6, Target: "duck"}))
	if s.Phase() != PhaseEnded || surf.isEnabled() {
		t.Fatal("ended phase must be terminal")
	}
	if err := s.RequestEndTurn(); err == nil {
		t.Fatal("end turn after end_game should be rejected")
	}
}

func TestPointerMoveDropsScoringWhileBusy(t *testing.T) {
	s, inf, ren, _, _ := newTestSession(t, game.ModeOnline)
	inf.block = make(chan struct{})
	startOnlineGame(t, s)
	s.HandleEvent(envOf(t, wire.EventStartTurn, wire.StartTurn{Turn: "p1", TurnsLeft: 10, Target: "duck"}))

	s.PointerDown(0, 0)
	s.PointerMove(1, 0)
	waitFor(t, func() bool { return inf.classifyCalls() == 1 })

	s.PointerMove(2, 0)
	s.PointerMove(3, 0)
	if got := s.DroppedMoveScorings(); got != 2 {
		t.Fatalf("dropped scorings = %d, want 2", got)
	}
	if inf.classifyCalls() != 1 {
		t.Fatalf("classify calls = %d, want 1 while busy", inf.classifyCalls())
	}

	close(inf.block)
	select {
	case got := <-ren.displays:
		if len(got) != 2 {
			t.Fatalf("displayed %d confidences, want 2", len(got))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for confidence display")
	}
}

func TestStaleInferenceResultDiscarded(t *testing.T) {
	s, inf, ren, _, _ := newTestSession(t, game.ModeOnline)
	inf.block = make(chan struct{})
	startOnlineGame(t, s)
	s.HandleEvent(envOf(t, wire.EventStartTurn, wire.StartTurn{Turn: "p1", TurnsLeft: 10, Target: "duck"}))

	s.PointerDown(0, 0)
	s.PointerMove(1, 0)
	waitFor(t, func() bool { return inf.classifyCalls() == 1 })

	// turn hands off while the inference is still in flight
	s.HandleEvent(envOf(t, wire.EventStartTurn, wire.StartTurn{Turn: "p2", TurnsLeft: 9, Target: "pig"}))
	close(inf.block)

	select {
	case <-ren.displays:
		t.Fatal("stale result must not reach the display")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPointerUpScoringRunsAfterBusyReleases(t *testing.T) {
	s, inf, ren, _, _ := newTestSession(t, game.ModeOnline)
	inf.block = make(chan struct{})
	startOnlineGame(t, s)
	s.HandleEvent(envOf(t, wire.EventStartTurn, wire.StartTurn{Turn: "p1", TurnsLeft: 10, Target: "duck"}))

	s.PointerDown(0, 0)
	s.PointerMove(1, 0)
	waitFor(t, func() bool { return inf.classifyCalls() == 1 })

	// the turn-ending pass is deferred, never dropped
	s.PointerUp()
	close(inf.block)

	waitFor(t, func() bool { return inf.classifyCalls() == 2 })
	select {
	case <-ren.displays:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for final scoring display")
	}
}

func TestBudgetTruncationEndsStroke(t *testing.T) {
	s, _, _, surf, _ := newTestSession(t, game.ModeOnline)
	startOnlineGame(t, s)
	s.HandleEvent(envOf(t, wire.EventStartTurn, wire.StartTurn{Turn: "p1", TurnsLeft: 10, Target: "duck"}))

	s.PointerDown(0, 0)
	s.PointerMove(50, 0)
	if got := s.BudgetRemaining(); got != 0 {
		t.Fatalf("budget remaining = %v, want 0 after truncation", got)
	}
	if surf.ended != 1 {
		t.Fatalf("stroke should end exactly once on truncation, got %d", surf.ended)
	}

	// exhausted budget blocks new strokes until the next turn
	before := surf.strokes
	s.PointerDown(10, 10)
	if surf.strokes != before {
		t.Fatal("new stroke must not start with an exhausted budget")
	}
}

func TestRequestEndTurnEmitsSnapshot(t *testing.T) {
	s, _, _, _, em := newTestSession(t, game.ModeOnline)
	startOnlineGame(t, s)
	s.HandleEvent(envOf(t, wire.EventStartTurn, wire.StartTurn{Turn: "p1", TurnsLeft: 10, Target: "duck"}))

	if err := s.RequestEndTurn(); err != nil {
		t.Fatalf("RequestEndTurn: %v", err)
	}

	ends := em.byType(wire.EventEndTurn)
	if len(ends) != 1 {
		t.Fatalf("end_turn events = %d, want 1", len(ends))
	}
	var p wire.EndTurn
	if err := wire.Decode(ends[0], &p); err != nil {
		t.Fatalf("decode end_turn: %v", err)
	}
	if p.PlayerID != "p1" || p.RoomID != "room-1" || p.Canvas == "" {
		t.Fatalf("unexpected end_turn payload: %+v", p)
	}
}

func TestRequestEndTurnRejectedOffTurn(t *testing.T) {
	s, _, _, _, _ := newTestSession(t, game.ModeOnline)
	startOnlineGame(t, s)
	s.HandleEvent(envOf(t, wire.EventStartTurn, wire.StartTurn{Turn: "p2", TurnsLeft: 10, Target: "pig"}))

	if err := s.RequestEndTurn(); err == nil {
		t.Fatal("ending the opponent's turn should be rejected")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
