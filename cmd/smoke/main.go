// Command smoke drives a headless game client against a running server.
// It joins a room, draws a scripted stroke on its turns and ends them,
// and reports the winner when the game finishes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"sketchwars/internal/game"
	"sketchwars/internal/inference"
	"sketchwars/internal/logger"
	"sketchwars/internal/session"
)

func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws", "websocket endpoint")
	modelBase := flag.String("model", "http://localhost:5002", "model service base URL")
	roomID := flag.String("room", "", "room id to join (empty creates one server-side)")
	gameType := flag.String("mode", "single_player", "game mode: online, local, single_player")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"), false)
	log := logger.Get()

	mode, ok := game.ParseMode(*gameType)
	if !ok {
		log.Error("unknown game mode", "mode", *gameType)
		os.Exit(1)
	}

	done := make(chan string, 1)
	surface := newScriptedSurface()
	s := session.New(session.Config{
		RoomID:          *roomID,
		Mode:            mode,
		DistancePerTurn: 40,
		SoftmaxFactor:   7,
		CanvasSize:      100,
	},
		session.NewRemoteInferencer(inference.NewClient(*modelBase), *roomID, [2]string{}),
		&consoleRenderer{log: log, done: done},
		surface,
		session.NewMemoryStore(),
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	feed, err := session.Dial(ctx, *serverURL, s, log)
	cancel()
	if err != nil {
		log.Error("dial failed", "error", err)
		os.Exit(1)
	}
	defer feed.Close()

	if err := s.Join(); err != nil {
		log.Error("join failed", "error", err)
		os.Exit(1)
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(5 * time.Minute)

	for {
		select {
		case winner := <-done:
			fmt.Println("winner:", winner)
			return
		case <-feed.Done():
			log.Error("connection lost before the game finished")
			os.Exit(1)
		case <-deadline:
			log.Error("smoke run timed out")
			os.Exit(1)
		case <-ticker.C:
			playScriptedTurn(s)
		}
	}
}

// playScriptedTurn draws a short zig-zag and ends the turn when it is ours.
func playScriptedTurn(s *session.Session) {
	if s.Phase() != session.PhaseInProgress {
		return
	}

	s.PointerDown(10, 10)
	for i := 1; i <= 5; i++ {
		s.PointerMove(10+float64(i*4), 10+float64(i%2)*6)
	}
	s.PointerUp()

	if err := s.RequestEndTurn(); err != nil {
		// not our turn yet
		return
	}
}

type consoleRenderer struct {
	log  interface{ Info(string, ...any) }
	done chan string
}

func (r *consoleRenderer) Display(confidences []game.LabelConfidence) {
	for _, c := range confidences {
		r.log.Info("confidence", "label", c.Label, "value", fmt.Sprintf("%.3f", c.Confidence))
	}
}

func (r *consoleRenderer) UpdateTurnIndicator(turnsLeft int, target string, myTurn bool) {
	r.log.Info("turn", "turnsLeft", turnsLeft, "target", target, "myTurn", myTurn)
}

func (r *consoleRenderer) ShowWinner(target string) {
	select {
	case r.done <- target:
	default:
	}
}

func (r *consoleRenderer) Notify(message string) {
	r.log.Info(message)
}
