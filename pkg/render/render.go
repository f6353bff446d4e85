// Package render drives a headless browser to load a target URL and
// serialize its rendered DOM for rule evaluation. The browser is an external
// process boundary: contexts are owned, recyclable resources leased from a
// bounded Pool, never a shared global.
package render

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/accesslens/accesslens/pkg/errors"
	"github.com/accesslens/accesslens/pkg/logging"
)

// Snapshot is the accessibility-relevant extraction of a rendered page.
type Snapshot struct {
	// URL is the audited address.
	URL string

	// HTML is the serialized rendered DOM.
	HTML string

	// Doc is the parsed DOM tree.
	Doc *html.Node

	// Contrast holds computed-style color samples for visible text elements.
	// Nil when collection was disabled; checks that need it are skipped, not
	// failed.
	Contrast []ContrastSample

	// ContrastCollected records whether contrast data was gathered.
	ContrastCollected bool
}

// Config configures the rendering controller.
type Config struct {
	// Timeout is the wall-clock ceiling for one navigation to stabilize.
	// Default: 30s.
	Timeout time.Duration

	// CollectContrast enables computed-style color sampling.
	CollectContrast bool
}

// Controller renders target URLs through pooled browser contexts.
type Controller struct {
	pool *Pool
	cfg  Config
	log  logging.Logger
}

// NewController creates a rendering controller on top of a context pool.
func NewController(pool *Pool, cfg Config, log logging.Logger) *Controller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Controller{pool: pool, cfg: cfg, log: logging.OrNop(log)}
}

// Render loads url in an isolated browser context and extracts its snapshot.
// The wait for a free context counts against the caller's deadline; the
// navigation itself is additionally capped by the configured timeout.
// The leased context is released on every exit path.
func (c *Controller) Render(ctx context.Context, url string) (*Snapshot, error) {
	const op = "render.Controller.Render"

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, errors.E(errors.KindInvalidInput, op, "target must be an http(s) URL")
	}

	bc, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	navCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	capture, err := bc.Visit(navCtx, url, VisitOptions{CollectContrast: c.cfg.CollectContrast})
	if err != nil {
		// A timed-out navigation leaves the context itself reusable; a
		// crashed one does not.
		kind := classifyVisitError(navCtx, err)
		c.pool.Release(bc, kind == errors.KindNavigationTimeout)
		switch kind {
		case errors.KindNavigationTimeout:
			return nil, errors.E(errors.KindNavigationTimeout, op, "page did not stabilize within "+c.cfg.Timeout.String(), err)
		default:
			return nil, errors.E(errors.KindRenderFailure, op, "browser navigation failed", err)
		}
	}
	c.pool.Release(bc, true)

	c.log.Debug("rendered %s in %s (%d bytes, %d contrast samples)",
		url, time.Since(start).Round(time.Millisecond), len(capture.HTML), len(capture.Contrast))

	doc, err := html.Parse(strings.NewReader(capture.HTML))
	if err != nil {
		return nil, errors.E(errors.KindRenderFailure, op, "parse rendered DOM", err)
	}

	return &Snapshot{
		URL:               url,
		HTML:              capture.HTML,
		Doc:               doc,
		Contrast:          capture.Contrast,
		ContrastCollected: c.cfg.CollectContrast,
	}, nil
}

// Close shuts down the underlying pool and browser.
func (c *Controller) Close() error {
	return c.pool.Close()
}

func classifyVisitError(navCtx context.Context, err error) errors.Kind {
	if k := errors.GetKind(err); k == errors.KindNavigationTimeout || k == errors.KindRenderFailure {
		return k
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(navCtx.Err(), context.DeadlineExceeded) {
		return errors.KindNavigationTimeout
	}
	return errors.KindRenderFailure
}
