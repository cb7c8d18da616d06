package uart

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"i4.energy/across/remoteio/settings"
)

// Set is the board's collection of UART channels, addressed by channel
// number. A slot may be empty when no device is configured for it.
type Set struct {
	channels []*Channel
}

// NewSet groups channels; slot i holds channel i and may be nil.
func NewSet(channels ...*Channel) *Set {
	return &Set{channels: channels}
}

// Count returns the number of channel slots.
func (s *Set) Count() int { return len(s.channels) }

func (s *Set) channel(ch int) (*Channel, error) {
	if ch < 0 || ch >= len(s.channels) || s.channels[ch] == nil {
		return nil, ErrInvalidChannel
	}
	return s.channels[ch], nil
}

// Write sends p on channel ch.
func (s *Set) Write(ch int, p []byte) error {
	c, err := s.channel(ch)
	if err != nil {
		return err
	}
	return c.Write(p)
}

// Configure applies line settings to channel ch.
func (s *Set) Configure(ch int, u settings.UART) error {
	c, err := s.channel(ch)
	if err != nil {
		return err
	}
	return c.Configure(u)
}

// Run reads every open channel and hands each received line to deliver
// until ctx is cancelled or a channel fails.
func (s *Set) Run(ctx context.Context, deliver func(Line)) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range s.channels {
		if c == nil {
			continue
		}
		g.Go(func() error { return c.Loop(ctx) })
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case l := <-c.Lines():
					deliver(l)
				}
			}
		})
	}
	return g.Wait()
}

// Close closes every open channel.
func (s *Set) Close() error {
	var errs []error
	for _, c := range s.channels {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && !errors.Is(err, ErrAlreadyClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
