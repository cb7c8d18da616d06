package hal

import (
	"fmt"
	"io"
	"sync"
)

// Color is one LED's 8-bit RGB value.
type Color struct {
	R, G, B uint8
}

// LEDStrip keeps the color of every LED in a WS28xx chain and pushes the
// whole frame, in the chain's GRB byte order, to the link driving it.
type LEDStrip struct {
	mu     sync.Mutex
	link   io.Writer
	colors []Color
	frame  []byte
}

// NewLEDStrip creates a strip of count LEDs, all off, writing frames to link.
func NewLEDStrip(link io.Writer, count int) *LEDStrip {
	return &LEDStrip{
		link:   link,
		colors: make([]Color, count),
		frame:  make([]byte, 0, 3*count),
	}
}

// Count returns the chain length.
func (s *LEDStrip) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.colors)
}

// SetColor changes the cached color of one LED. The chain is not touched
// until Update.
func (s *LEDStrip) SetColor(index int, c Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.colors) {
		return fmt.Errorf("led %d: %w", index, ErrInvalidOffset)
	}
	s.colors[index] = c
	return nil
}

// Color returns the cached color of one LED.
func (s *LEDStrip) Color(index int) (Color, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.colors) {
		return Color{}, fmt.Errorf("led %d: %w", index, ErrInvalidOffset)
	}
	return s.colors[index], nil
}

// Resize changes the chain length, keeping the colors of LEDs that remain.
func (s *LEDStrip) Resize(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if count <= len(s.colors) {
		s.colors = s.colors[:count]
		return
	}
	s.colors = append(s.colors, make([]Color, count-len(s.colors))...)
}

// Update writes the full frame to the link.
func (s *LEDStrip) Update() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame = s.frame[:0]
	for _, c := range s.colors {
		s.frame = append(s.frame, c.G, c.R, c.B)
	}
	if _, err := s.link.Write(s.frame); err != nil {
		return fmt.Errorf("write led frame: %w", err)
	}
	return nil
}
