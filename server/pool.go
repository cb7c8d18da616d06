package server

import "sync"

// State is the lifecycle stage of a connection slot.
type State int32

const (
	Free State = iota
	Allocated
	Active
	Closing
)

func (s State) String() string {
	switch s {
	case Allocated:
		return "allocated"
	case Active:
		return "active"
	case Closing:
		return "closing"
	default:
		return "free"
	}
}

// pool is the fixed set of connection slots. An empty slot is Free.
type pool struct {
	mu    sync.Mutex
	slots []*Conn
}

func newPool(size int) *pool {
	return &pool{slots: make([]*Conn, size)}
}

// allocate claims the first free slot and fills it with the connection
// built by newConn.
func (p *pool) allocate(newConn func(slot int) *Conn) (*Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.slots {
		if c == nil {
			c = newConn(i)
			c.state.Store(int32(Allocated))
			p.slots[i] = c
			return c, nil
		}
	}
	return nil, ErrPoolExhausted
}

func (p *pool) release(c *Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.slots[c.slot] == c {
		p.slots[c.slot] = nil
	}
	c.state.Store(int32(Free))
}

// active returns the connections currently in the Active state.
func (p *pool) active() []*Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*Conn
	for _, c := range p.slots {
		if c != nil && c.State() == Active {
			out = append(out, c)
		}
	}
	return out
}

func (p *pool) inUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.slots {
		if c != nil {
			n++
		}
	}
	return n
}
