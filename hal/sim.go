package hal

import "sync"

// SimBank is an in-memory input/output bank. Inputs are driven by SetInput,
// which makes it suitable for tests and for running without hardware.
type SimBank struct {
	mu      sync.Mutex
	inputs  []bool
	outputs []bool
}

func NewSimBank(inputs, outputs int) *SimBank {
	return &SimBank{
		inputs:  make([]bool, inputs),
		outputs: make([]bool, outputs),
	}
}

func (s *SimBank) NumInputs() int  { return len(s.inputs) }
func (s *SimBank) NumOutputs() int { return len(s.outputs) }

func (s *SimBank) Input(offset int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset < 0 || offset >= len(s.inputs) {
		return false, ErrInvalidOffset
	}
	return s.inputs[offset], nil
}

// SetInput changes the level seen on an input line.
func (s *SimBank) SetInput(offset int, state bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset >= 0 && offset < len(s.inputs) {
		s.inputs[offset] = state
	}
}

func (s *SimBank) Output(offset int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset < 0 || offset >= len(s.outputs) {
		return false, ErrInvalidOffset
	}
	return s.outputs[offset], nil
}

func (s *SimBank) SetOutput(offset int, state bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset < 0 || offset >= len(s.outputs) {
		return ErrInvalidOffset
	}
	s.outputs[offset] = state
	return nil
}
