package punish

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Gate blocks moderation commands until startup reconciliation has finished.
type Gate struct {
	once sync.Once
	ch   chan struct{}
}

// NewGate returns a closed gate.
func NewGate() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Open releases every waiter. Calling it more than once is harmless.
func (g *Gate) Open() {
	g.once.Do(func() { close(g.ch) })
}

// Done is closed once the gate opens.
func (g *Gate) Done() <-chan struct{} {
	return g.ch
}

// Ready reports whether the gate is open.
func (g *Gate) Ready() bool {
	select {
	case <-g.ch:
		return true
	default:
		return false
	}
}

// Wait blocks until the gate opens or ctx ends, in which case ErrNotReady is returned.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.ch:
		return nil
	case <-ctx.Done():
		return errors.WithMessage(ErrNotReady, ctx.Err().Error())
	}
}
