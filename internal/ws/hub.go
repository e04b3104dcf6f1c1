package ws

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"sketchwars/internal/config"
	"sketchwars/internal/game"
	"sketchwars/internal/inference"
	"sketchwars/internal/logger"
)

var ErrModeUnavailable = errors.New("game mode is not available")

// Hub tracks live rooms. Rooms are keyed by id so clients can share a
// room link; a missing id gets a fresh room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	cfg       *config.Config
	inference *inference.Client
	repo      MatchStore
}

func NewHub(cfg *config.Config, inf *inference.Client, repo MatchStore) *Hub {
	return &Hub{
		rooms:     make(map[string]*Room),
		cfg:       cfg,
		inference: inf,
		repo:      repo,
	}
}

// CreateRoom makes an empty room and returns its id, for the room-link
// HTTP endpoint.
func (h *Hub) CreateRoom(gameType string) (string, error) {
	roomID := newRoomID()
	if _, err := h.AssignRoom(roomID, gameType); err != nil {
		return "", err
	}
	return roomID, nil
}

// AssignRoom returns the room with the given id, creating it on first
// use. A room's mode is fixed by its first join; later joins with a
// different mode are rejected.
func (h *Hub) AssignRoom(roomID, gameType string) (*Room, error) {
	mode, ok := game.ParseMode(gameType)
	if !ok {
		return nil, fmt.Errorf("unknown game type %q", gameType)
	}
	if mode == game.ModeFreePlay {
		// free play is a solo canvas with no turn loop to host
		return nil, ErrModeUnavailable
	}
	if roomID == "" {
		roomID = newRoomID()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[roomID]; ok {
		if room.Match.Mode != mode {
			return nil, fmt.Errorf("room %s is a %s room", roomID, room.Match.Mode)
		}
		return room, nil
	}

	labelPair, err := h.pickLabelPair()
	if err != nil {
		return nil, err
	}

	match, err := game.NewMatch(mode, roomID, labelPair, h.cfg.TotalNumTurns)
	if err != nil {
		return nil, err
	}

	room := newRoom(roomID, match, h, h.inference, h.repo, h.onnxURL(labelPair), h.cfg.DisconnectGrace)
	h.rooms[roomID] = room
	go room.run()

	roomsActive.Inc()
	logger.Info("room created", "room", roomID, "mode", mode, "labels", labelPair)
	return room, nil
}

// Room looks up a live room by id.
func (h *Hub) Room(roomID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[roomID]
	return room, ok
}

// Remove drops a room and stops its run loop.
func (h *Hub) Remove(roomID string) {
	h.mu.Lock()
	room, ok := h.rooms[roomID]
	if ok {
		delete(h.rooms, roomID)
	}
	h.mu.Unlock()

	if ok {
		room.stop()
		roomsActive.Dec()
		logger.Info("room removed", "room", roomID)
	}
}

// StartCleanup drops rooms that never started and lost all their clients.
func (h *Hub) StartCleanup() {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			h.cleanupStale(10 * time.Minute)
		}
	}()
}

func (h *Hub) cleanupStale(maxIdle time.Duration) {
	h.mu.RLock()
	var stale []string
	for id, room := range h.rooms {
		if !room.Match.Started() && room.ClientCount() == 0 && time.Since(room.CreatedAt()) > maxIdle {
			stale = append(stale, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range stale {
		h.Remove(id)
	}
}

func (h *Hub) pickLabelPair() ([2]string, error) {
	if len(h.cfg.LabelPairs) == 0 {
		return [2]string{}, errors.New("no label pairs configured")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(h.cfg.LabelPairs))))
	if err != nil {
		return [2]string{}, err
	}
	return game.ParseLabelPair(h.cfg.LabelPairs[n.Int64()])
}

func (h *Hub) onnxURL(labelPair [2]string) string {
	if h.cfg.ModelServiceBase == "" {
		return ""
	}
	return h.cfg.ModelServiceBase + "/models/" + labelPair[0] + "-" + labelPair[1] + ".onnx"
}

func newRoomID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
