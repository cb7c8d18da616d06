package dio

import (
	"fmt"
	"sync"
)

// MaxRun is the longest range WriteMultiple accepts, one bit per output.
const MaxRun = 32

// OutputBank drives output lines.
type OutputBank interface {
	NumOutputs() int
	Output(offset int) (bool, error)
	SetOutput(offset int, state bool) error
}

// Outputs is the writable collection of digital outputs.
type Outputs struct {
	// mu serializes multi-line writes against each other
	mu   sync.Mutex
	bank OutputBank
}

func NewOutputs(bank OutputBank) *Outputs {
	return &Outputs{bank: bank}
}

// Count returns the number of outputs.
func (o *Outputs) Count() int { return o.bank.NumOutputs() }

// Valid reports whether index names an output.
func (o *Outputs) Valid(index int) bool { return index >= 1 && index <= o.bank.NumOutputs() }

// Read returns the driven state of one output.
func (o *Outputs) Read(index int) (bool, error) {
	if !o.Valid(index) {
		return false, ErrInvalidIndex
	}
	return o.bank.Output(index - 1)
}

// ReadAll returns every output packed into a bitmask; bit i-1 holds output i.
func (o *Outputs) ReadAll() (uint32, error) {
	var mask uint32
	for i := 1; i <= o.bank.NumOutputs() && i <= 32; i++ {
		on, err := o.bank.Output(i - 1)
		if err != nil {
			return 0, fmt.Errorf("read output %d: %w", i, err)
		}
		if on {
			mask |= 1 << (i - 1)
		}
	}
	return mask, nil
}

// Write drives one output.
func (o *Outputs) Write(index int, state bool) error {
	if !o.Valid(index) {
		return ErrInvalidIndex
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bank.SetOutput(index-1, state)
}

// WriteMultiple drives outputs start..start+length-1 from data, bit k of data
// going to output start+k. The whole range is checked before any line
// changes.
func (o *Outputs) WriteMultiple(data uint32, start, length int) error {
	if length < 1 || length > MaxRun || !o.Valid(start) || !o.Valid(start+length-1) {
		return ErrInvalidIndex
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for k := range length {
		if err := o.bank.SetOutput(start-1+k, data>>k&1 == 1); err != nil {
			return fmt.Errorf("write output %d: %w", start+k, err)
		}
	}
	return nil
}
