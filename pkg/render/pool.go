package render

import (
	"context"
	"sync"
	"time"

	"github.com/accesslens/accesslens/pkg/errors"
	"github.com/accesslens/accesslens/pkg/logging"
)

// Context is one isolated browser context. Concurrent runs must never share
// one: cookies, navigation state, and in-flight scripts would leak between
// them. Implementations are not safe for concurrent use; the pool hands each
// context to at most one run at a time.
type Context interface {
	// Visit navigates to url inside this context and returns the captured
	// page. The page/tab is torn down before Visit returns, on every path.
	Visit(ctx context.Context, url string, opts VisitOptions) (*Capture, error)

	// Close releases the context and all its resources.
	Close() error
}

// Factory creates browser contexts on demand.
type Factory interface {
	// NewContext creates a fresh isolated context.
	NewContext(ctx context.Context) (Context, error)

	// Close tears down the shared browser process.
	Close() error
}

// VisitOptions configures a single page visit.
type VisitOptions struct {
	// CollectContrast samples computed foreground/background colors of
	// visible text elements.
	CollectContrast bool
}

// Capture is the raw payload a context extracts from a rendered page.
type Capture struct {
	// HTML is the serialized rendered DOM.
	HTML string

	// Contrast holds computed-style color samples; nil when collection was
	// disabled or unsupported.
	Contrast []ContrastSample
}

// ContrastSample is one text element's computed colors.
type ContrastSample struct {
	Selector   string  `json:"sel"`
	Foreground string  `json:"fg"`
	Background string  `json:"bg"`
	FontSizePx float64 `json:"size"`
	Bold       bool    `json:"bold"`
}

// Observer receives pool lease events, for instrumentation.
type Observer interface {
	ContextAcquired(wait time.Duration)
	ContextReleased()
}

// Pool is a bounded pool of leasable browser contexts. Acquire blocks when
// every slot is leased, subject to the caller's deadline; contexts returned
// healthy are recycled, broken ones are discarded and their slot freed for
// a replacement.
type Pool struct {
	factory  Factory
	log      logging.Logger
	observer Observer

	sem  chan struct{}
	idle chan Context

	mu     sync.Mutex
	closed bool
	inUse  int
}

// NewPool creates a pool of at most size contexts. Contexts are created
// lazily on first demand.
func NewPool(factory Factory, size int, log logging.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		factory: factory,
		log:     logging.OrNop(log),
		sem:     make(chan struct{}, size),
		idle:    make(chan Context, size),
	}
}

// SetObserver installs a lease observer. Call before the pool is in use.
func (p *Pool) SetObserver(o Observer) { p.observer = o }

// Acquire leases a context, blocking until a slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (Context, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.ErrPoolClosed
	}
	p.mu.Unlock()

	start := time.Now()
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, errors.E(errors.KindTimeout, "render.Pool.Acquire", "no browser context available before deadline", ctx.Err())
	}

	// Slot held from here on; give it back on any failure.
	select {
	case c := <-p.idle:
		p.markAcquired(time.Since(start))
		return c, nil
	default:
	}

	c, err := p.factory.NewContext(ctx)
	if err != nil {
		<-p.sem
		return nil, errors.E(errors.KindRenderFailure, "render.Pool.Acquire", "create browser context", err)
	}
	p.markAcquired(time.Since(start))
	return c, nil
}

// Release returns a leased context. Healthy contexts are recycled; unhealthy
// ones are closed so the next Acquire builds a replacement.
func (p *Pool) Release(c Context, healthy bool) {
	if c == nil {
		return
	}

	// The closed check and the idle enqueue happen under one lock: Close
	// drains idle only after setting closed, so a context parked here is
	// always seen by that drain.
	p.mu.Lock()
	p.inUse--
	recycled := false
	if healthy && !p.closed {
		select {
		case p.idle <- c:
			recycled = true
		default:
			// idle buffer full; discard below
		}
	}
	p.mu.Unlock()

	if p.observer != nil {
		p.observer.ContextReleased()
	}
	if !recycled {
		if err := c.Close(); err != nil {
			p.log.Warn("discarding browser context: %v", err)
		}
	}
	<-p.sem
}

// Size reports the pool capacity.
func (p *Pool) Size() int { return cap(p.sem) }

// InUse reports the number of currently leased contexts.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Close drains idle contexts and shuts the shared browser down. Contexts
// still leased are closed by their holders via Release.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case c := <-p.idle:
			if err := c.Close(); err != nil {
				p.log.Warn("closing idle browser context: %v", err)
			}
		default:
			return p.factory.Close()
		}
	}
}

func (p *Pool) markAcquired(wait time.Duration) {
	p.mu.Lock()
	p.inUse++
	p.mu.Unlock()
	if p.observer != nil {
		p.observer.ContextAcquired(wait)
	}
}
