// Package dio holds the digital input and output registries.
//
// Indices are 1-based, as on the wire. The hardware banks behind the
// registries use 0-based line offsets.
package dio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"
)

// DefaultPollInterval is how often subscribed inputs are sampled.
const DefaultPollInterval = 10 * time.Millisecond

// InputBank reads the live level of input lines.
type InputBank interface {
	NumInputs() int
	Input(offset int) (bool, error)
}

// Subscriber receives input change notifications. Notify is called from the
// poller goroutine with the registry locked, so it must return quickly and
// must not call back into the registry.
type Subscriber interface {
	Notify(index int, state bool)
}

// PollState reports whether the background poller has work.
type PollState int

const (
	Idle PollState = iota
	Polling
)

func (s PollState) String() string {
	if s == Polling {
		return "polling"
	}
	return "idle"
}

type entry struct {
	index int
	last  bool
	subs  []Subscriber
}

// Inputs is the input registry: live reads plus per-index subscriber lists
// driving change notifications.
type Inputs struct {
	logger   *slog.Logger
	bank     InputBank
	interval time.Duration

	// mu guards entries, state and running. Every insert/remove and the
	// idle check of the poller happen under it so a wakeup is never lost.
	mu      sync.Mutex
	entries []*entry // ascending by index
	state   PollState
	running bool
	wake    chan struct{}
}

// NewInputs creates a registry over bank. A zero interval selects
// DefaultPollInterval.
func NewInputs(logger *slog.Logger, bank InputBank, interval time.Duration) *Inputs {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Inputs{
		logger:   logger,
		bank:     bank,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Count returns the number of inputs.
func (in *Inputs) Count() int { return in.bank.NumInputs() }

// Valid reports whether index names an input.
func (in *Inputs) Valid(index int) bool { return index >= 1 && index <= in.bank.NumInputs() }

// Read returns the live state of one input. An invalid index is a
// programming error and panics.
func (in *Inputs) Read(index int) (bool, error) {
	if !in.Valid(index) {
		panic(fmt.Sprintf("dio: input index %d out of range", index))
	}
	return in.bank.Input(index - 1)
}

// ReadAll returns every input packed into a bitmask; bit i-1 holds input i.
func (in *Inputs) ReadAll() (uint32, error) {
	var mask uint32
	for i := 1; i <= in.bank.NumInputs() && i <= 32; i++ {
		on, err := in.bank.Input(i - 1)
		if err != nil {
			return 0, fmt.Errorf("read input %d: %w", i, err)
		}
		if on {
			mask |= 1 << (i - 1)
		}
	}
	return mask, nil
}

// Subscribe registers sub for changes of input index. Subscribing twice is a
// no-op and an out-of-range index is ignored. The first subscriber of an
// index captures the current level as the change baseline.
func (in *Inputs) Subscribe(sub Subscriber, index int) {
	if !in.Valid(index) {
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	pos, found := in.find(index)
	if !found {
		baseline, err := in.bank.Input(index - 1)
		if err != nil {
			in.logger.Warn("Failed to read subscription baseline", "index", index, "error", err)
		}
		in.entries = slices.Insert(in.entries, pos, &entry{index: index, last: baseline})
	}
	e := in.entries[pos]
	if slices.Contains(e.subs, sub) {
		return
	}
	e.subs = append(e.subs, sub)

	if in.state == Idle {
		in.state = Polling
		select {
		case in.wake <- struct{}{}:
		default:
		}
	}
}

// Unsubscribe removes sub from input index. Entries left without
// subscribers are dropped.
func (in *Inputs) Unsubscribe(sub Subscriber, index int) {
	in.mu.Lock()
	defer in.mu.Unlock()

	pos, found := in.find(index)
	if !found {
		return
	}
	in.remove(pos, sub)
	in.settle()
}

// UnsubscribeAll removes sub from every index. It is called when a
// connection goes away so no notification reaches it afterwards.
func (in *Inputs) UnsubscribeAll(sub Subscriber) {
	in.mu.Lock()
	defer in.mu.Unlock()

	for pos := len(in.entries) - 1; pos >= 0; pos-- {
		in.remove(pos, sub)
	}
	in.settle()
}

// Subscribed returns the indices sub is registered for, ascending.
func (in *Inputs) Subscribed(sub Subscriber) []int {
	in.mu.Lock()
	defer in.mu.Unlock()

	var out []int
	for _, e := range in.entries {
		if slices.Contains(e.subs, sub) {
			out = append(out, e.index)
		}
	}
	return out
}

// PrintSubscribed writes the indices sub is registered for, space separated
// with no trailing separator.
func (in *Inputs) PrintSubscribed(sub Subscriber, w io.Writer) error {
	for i, index := range in.Subscribed(sub) {
		if i > 0 {
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, strconv.Itoa(index)); err != nil {
			return err
		}
	}
	return nil
}

// State returns the current poll state.
func (in *Inputs) State() PollState {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// Run samples subscribed inputs every poll interval until ctx is done. It
// parks while the registry is empty and resumes on the next Subscribe.
func (in *Inputs) Run(ctx context.Context) error {
	in.mu.Lock()
	if in.running {
		in.mu.Unlock()
		return ErrRunning
	}
	in.running = true
	in.mu.Unlock()
	defer func() {
		in.mu.Lock()
		in.running = false
		in.mu.Unlock()
	}()

	ticker := time.NewTicker(in.interval)
	defer ticker.Stop()

	for {
		if in.State() == Idle {
			in.logger.Debug("Input poller parked")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-in.wake:
				in.logger.Debug("Input poller resumed")
				ticker.Reset(in.interval)
				continue
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			in.poll()
		}
	}
}

// poll compares every subscribed input against its cached level and fans
// changes out in subscription order.
func (in *Inputs) poll() {
	in.mu.Lock()
	defer in.mu.Unlock()

	for _, e := range in.entries {
		on, err := in.bank.Input(e.index - 1)
		if err != nil {
			in.logger.Warn("Failed to poll input", "index", e.index, "error", err)
			continue
		}
		if on == e.last {
			continue
		}
		e.last = on
		for _, sub := range e.subs {
			sub.Notify(e.index, on)
		}
	}
}

func (in *Inputs) find(index int) (int, bool) {
	return slices.BinarySearchFunc(in.entries, index, func(e *entry, target int) int {
		return e.index - target
	})
}

func (in *Inputs) remove(pos int, sub Subscriber) {
	e := in.entries[pos]
	e.subs = slices.DeleteFunc(e.subs, func(s Subscriber) bool { return s == sub })
	if len(e.subs) == 0 {
		in.entries = slices.Delete(in.entries, pos, pos+1)
	}
}

// settle parks the poller once the registry is empty. Caller holds mu.
func (in *Inputs) settle() {
	if len(in.entries) == 0 {
		in.state = Idle
	}
}
