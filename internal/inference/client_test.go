package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInfer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/infer" {
			t.Fatalf("path = %s; want /infer", r.URL.Path)
		}
		if got := r.Header.Get("Room-Id"); got != "room1" {
			t.Fatalf("Room-Id = %q; want room1", got)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["imageDataUrl"] != "data:image/png;base64,abc" {
			t.Fatalf("imageDataUrl = %v", body["imageDataUrl"])
		}

		json.NewEncoder(w).Encode(map[string]any{"modelOutputs": []float64{0.3, 0.7}})
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	outputs, err := c.Infer(context.Background(), "room1", [2]string{"clock", "sheep"}, "data:image/png;base64,abc")
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if outputs != [2]float64{0.3, 0.7} {
		t.Fatalf("outputs = %v", outputs)
	}
}

func TestInferBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	if _, err := c.Infer(context.Background(), "room1", [2]string{"a", "b"}, "x"); err == nil {
		t.Fatal("want error on non-success status")
	}
}

func TestInferWrongOutputCount(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"modelOutputs": []float64{0.5}})
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	if _, err := c.Infer(context.Background(), "room1", [2]string{"a", "b"}, "x"); err == nil {
		t.Fatal("want error for wrong output count")
	}
}

func TestInferStrokeAccepted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/infer_stroke" {
			t.Fatalf("path = %s; want /infer_stroke", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["roomId"] != "room1" || body["targetIndex"] != float64(1) {
			t.Fatalf("body = %v", body)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	if err := c.InferStroke(context.Background(), "room1", [2]string{"a", "b"}, 1, "x"); err != nil {
		t.Fatalf("infer stroke: %v", err)
	}
}
