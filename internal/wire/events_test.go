package wire

import (
	"encoding/json"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	raw, err := Encode(EventStartTurn, StartTurn{
		Turn:      "p1",
		TurnsLeft: 9,
		Target:    "clock",
		Canvas:    "data:image/png;base64,xyz",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != EventStartTurn {
		t.Fatalf("type = %q; want start_turn", env.Type)
	}

	var p StartTurn
	if err := Decode(env, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Turn != "p1" || p.TurnsLeft != 9 || p.Target != "clock" {
		t.Fatalf("decoded payload = %+v", p)
	}
}

func TestValidateRejectsMalformed(t *testing.T) {
	cases := []struct {
		name    string
		payload Validator
	}{
		{"join without room", JoinRoom{GameType: "online"}},
		{"join without game type", JoinRoom{RoomID: "r1"}},
		{"assign without player", AssignPlayer{}},
		{"start_game without targets", StartGame{}},
		{"start_game missing index", StartGame{
			Targets: map[string]string{"p1": "clock"},
		}},
		{"start_turn without turn", StartTurn{TurnsLeft: 3}},
		{"start_turn negative turns", StartTurn{Turn: "p1", TurnsLeft: -1}},
		{"end_turn without player", EndTurn{RoomID: "r1"}},
		{"ai_stroke empty", AIStroke{}},
		{"ai_stroke out of range", AIStroke{StrokeSamples: []StrokeSample{{1.5, 0.5}}}},
		{"end_game without winner", EndGame{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.payload.Validate(); err == nil {
				t.Fatalf("%T should fail validation", tc.payload)
			}
		})
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	env := Envelope{Type: EventEndTurn, Payload: json.RawMessage(`{"roomId": 42}`)}
	var p EndTurn
	if err := Decode(env, &p); err == nil {
		t.Fatal("want error for wrongly typed field")
	}
}
