//go:build linux

package hal

import (
	"errors"
	"fmt"

	gpiod "github.com/warthog618/go-gpiocdev"
)

const consumer = "remoteio"

// ChipBank maps input and output indices onto lines of a GPIO character
// device such as /dev/gpiochip0.
type ChipBank struct {
	chip    *gpiod.Chip
	inputs  []*gpiod.Line
	outputs []*gpiod.Line
}

// OpenChip requests inputLines as inputs and outputLines as outputs, all
// outputs starting low. Every line is released again if any request fails.
func OpenChip(name string, inputLines, outputLines []int) (*ChipBank, error) {
	chip, err := gpiod.NewChip(name, gpiod.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}

	b := &ChipBank{chip: chip}
	for _, pin := range inputLines {
		line, err := chip.RequestLine(pin, gpiod.AsInput)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request input line %d: %w", pin, err)
		}
		b.inputs = append(b.inputs, line)
	}
	for _, pin := range outputLines {
		line, err := chip.RequestLine(pin, gpiod.AsOutput(0))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request output line %d: %w", pin, err)
		}
		b.outputs = append(b.outputs, line)
	}
	return b, nil
}

func (b *ChipBank) NumInputs() int  { return len(b.inputs) }
func (b *ChipBank) NumOutputs() int { return len(b.outputs) }

func (b *ChipBank) Input(offset int) (bool, error) {
	if offset < 0 || offset >= len(b.inputs) {
		return false, ErrInvalidOffset
	}
	v, err := b.inputs[offset].Value()
	return v != 0, err
}

func (b *ChipBank) Output(offset int) (bool, error) {
	if offset < 0 || offset >= len(b.outputs) {
		return false, ErrInvalidOffset
	}
	v, err := b.outputs[offset].Value()
	return v != 0, err
}

func (b *ChipBank) SetOutput(offset int, state bool) error {
	if offset < 0 || offset >= len(b.outputs) {
		return ErrInvalidOffset
	}
	v := 0
	if state {
		v = 1
	}
	return b.outputs[offset].SetValue(v)
}

// Close releases all requested lines and the chip.
func (b *ChipBank) Close() error {
	var errs []error
	for _, l := range append(b.inputs, b.outputs...) {
		errs = append(errs, l.Close())
	}
	b.inputs, b.outputs = nil, nil
	if b.chip != nil {
		errs = append(errs, b.chip.Close())
	}
	return errors.Join(errs...)
}
