package main

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
)

const surfaceSize = 100

// scriptedSurface is a minimal in-memory canvas. It rasterizes strokes
// onto a grayscale image so the snapshots sent to the model service are
// real PNG data URLs, the same shape a browser canvas produces.
type scriptedSurface struct {
	mu      sync.Mutex
	img     *image.Gray
	enabled bool
	penX    float64
	penY    float64
}

func newScriptedSurface() *scriptedSurface {
	s := &scriptedSurface{}
	s.clear()
	return s
}

func (s *scriptedSurface) clear() {
	s.img = image.NewGray(image.Rect(0, 0, surfaceSize, surfaceSize))
	for i := range s.img.Pix {
		s.img.Pix[i] = 255
	}
}

func (s *scriptedSurface) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

func (s *scriptedSurface) SetCanvas(canvasDataURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// scripted runs do not replay the opponent's canvas pixels
	if canvasDataURL == "" {
		s.clear()
	}
}

func (s *scriptedSurface) CanvasDataURL() string { return s.encode() }

func (s *scriptedSurface) PreviewDataURL() string { return s.encode() }

func (s *scriptedSurface) BeginStroke(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.penX, s.penY = x, y
}

func (s *scriptedSurface) StrokeTo(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dist := math.Hypot(x-s.penX, y-s.penY)
	steps := int(dist) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		px := int(s.penX + (x-s.penX)*t)
		py := int(s.penY + (y-s.penY)*t)
		if px >= 0 && px < surfaceSize && py >= 0 && py < surfaceSize {
			s.img.SetGray(px, py, color.Gray{Y: 0})
		}
	}
	s.penX, s.penY = x, y
}

func (s *scriptedSurface) EndStroke() {}

func (s *scriptedSurface) encode() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, s.img); err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
