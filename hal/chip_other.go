//go:build !linux

package hal

// ChipBank is only available on Linux.
type ChipBank struct{}

func OpenChip(name string, inputLines, outputLines []int) (*ChipBank, error) {
	return nil, ErrUnsupported
}

func (b *ChipBank) NumInputs() int                         { return 0 }
func (b *ChipBank) NumOutputs() int                        { return 0 }
func (b *ChipBank) Input(offset int) (bool, error)         { return false, ErrUnsupported }
func (b *ChipBank) Output(offset int) (bool, error)        { return false, ErrUnsupported }
func (b *ChipBank) SetOutput(offset int, state bool) error { return ErrUnsupported }
func (b *ChipBank) Close() error                           { return nil }
