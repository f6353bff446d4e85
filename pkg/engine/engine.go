// Package engine drives complete audit runs: render or parse the target,
// evaluate the checks, score, and persist the result.
package engine

import (
	"context"
	"time"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/errors"
	"github.com/accesslens/accesslens/pkg/logging"
	"github.com/accesslens/accesslens/pkg/metrics"
	"github.com/accesslens/accesslens/pkg/render"
	"github.com/accesslens/accesslens/pkg/score"
	"github.com/accesslens/accesslens/pkg/store"
	"github.com/accesslens/accesslens/pkg/webrules"
)

// Renderer produces page snapshots for web targets.
type Renderer interface {
	Render(ctx context.Context, url string) (*render.Snapshot, error)
}

// PDFAuditor checks PDF targets.
type PDFAuditor interface {
	Audit(data []byte) ([]audit.Violation, error)
}

// Saver persists finished runs.
type Saver interface {
	Save(ctx context.Context, result *audit.Result) (*store.Artifact, error)
}

// Engine runs audits end to end.
type Engine struct {
	renderer Renderer
	pdf      PDFAuditor
	saver    Saver
	scorer   *score.Aggregator
	metrics  *metrics.Metrics
	log      logging.Logger
}

func New(renderer Renderer, pdf PDFAuditor, saver Saver, scorer *score.Aggregator, m *metrics.Metrics, log logging.Logger) *Engine {
	if scorer == nil {
		scorer = score.NewAggregator(score.DefaultCalibration())
	}
	return &Engine{
		renderer: renderer,
		pdf:      pdf,
		saver:    saver,
		scorer:   scorer,
		metrics:  m,
		log:      logging.OrNop(log),
	}
}

// Run executes one audit and persists its result. The returned result always
// carries a definite status; the error is non-nil only when the input is
// invalid or persistence failed, never for an audit-logic failure (those are
// reported as status failed on the result).
func (e *Engine) Run(ctx context.Context, target audit.Target) (*audit.Result, error) {
	const op = "engine.Run"

	result := &audit.Result{Target: target, StartedAt: time.Now()}

	var (
		violations []audit.Violation
		skipped    []string
		pdfLinks   []string
		runErr     error
	)
	switch target.Kind {
	case audit.KindWeb:
		violations, skipped, pdfLinks, runErr = e.auditWeb(ctx, target.URL)
	case audit.KindPDF:
		if len(target.PDF) == 0 {
			return nil, errors.E(errors.KindInvalidInput, op, "pdf target has no content")
		}
		violations, runErr = e.pdf.Audit(target.PDF)
	default:
		return nil, errors.E(errors.KindInvalidInput, op, "unknown target kind "+string(target.Kind))
	}
	if runErr != nil && errors.GetKind(runErr) == errors.KindInvalidInput {
		// A target the renderer refuses to load is a caller mistake, not an
		// audit outcome; nothing is persisted for it.
		return nil, runErr
	}
	result.FinishedAt = time.Now()

	if runErr != nil {
		result.Status = audit.StatusFailed
		result.Error = runErr.Error()
		e.log.Warn("audit of %s failed: %v", target.Name(), runErr)
	} else {
		audit.SortViolations(violations)
		result.Violations = violations
		result.SkippedChecks = skipped
		result.PDFLinks = pdfLinks
		result.Score = e.scorer.Score(violations, target.Kind)
		result.Status = audit.StatusOK
		if len(skipped) > 0 {
			result.Status = audit.StatusPartial
		}
	}

	if _, err := e.saver.Save(ctx, result); err != nil {
		if e.metrics != nil {
			e.metrics.StoreSaves.WithLabelValues("error").Inc()
		}
		// The audit itself may have succeeded; surface the persistence
		// failure distinctly so callers do not mistake it for one.
		return result, err
	}
	if e.metrics != nil {
		e.metrics.StoreSaves.WithLabelValues("ok").Inc()
	}

	e.observe(result)
	e.log.Info("audit %s: %s score=%d violations=%d status=%s",
		result.RunID, target.Name(), result.Score, len(result.Violations), result.Status)
	return result, nil
}

// auditWeb renders the page and evaluates the web checks. A transient render
// failure is retried once; the pool discards the broken context so the retry
// gets a fresh one.
func (e *Engine) auditWeb(ctx context.Context, url string) ([]audit.Violation, []string, []string, error) {
	snap, err := e.renderer.Render(ctx, url)
	if err != nil && errors.IsRetryable(err) && ctx.Err() == nil {
		e.log.Warn("render %s failed (%v), retrying with a fresh context", url, err)
		snap, err = e.renderer.Render(ctx, url)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	page := webrules.NewPage(snap)
	violations, skipped := webrules.Evaluate(page)
	return violations, skipped, page.FindPDFLinks(), nil
}

func (e *Engine) observe(result *audit.Result) {
	if e.metrics == nil {
		return
	}
	counts := result.Counts()
	e.metrics.ObserveAudit(
		string(result.Target.Kind),
		string(result.Status),
		map[string]int{
			"critical": counts.Critical,
			"serious":  counts.Serious,
			"moderate": counts.Moderate,
			"minor":    counts.Minor,
		},
		result.FinishedAt.Sub(result.StartedAt),
	)
}
