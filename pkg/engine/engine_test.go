package engine

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/errors"
	"github.com/accesslens/accesslens/pkg/render"
	"github.com/accesslens/accesslens/pkg/severity"
	"github.com/accesslens/accesslens/pkg/store"
)

type fakeRenderer struct {
	calls   int
	results []func() (*render.Snapshot, error)
}

func (f *fakeRenderer) Render(ctx context.Context, url string) (*render.Snapshot, error) {
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i]()
}

func snapshotOf(t *testing.T, src string) *render.Snapshot {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return &render.Snapshot{URL: "https://example.com/", HTML: src, Doc: doc}
}

type fakePDF struct {
	violations []audit.Violation
	err        error
}

func (f *fakePDF) Audit(data []byte) ([]audit.Violation, error) { return f.violations, f.err }

type fakeSaver struct {
	saved []*audit.Result
	err   error
}

func (f *fakeSaver) Save(ctx context.Context, r *audit.Result) (*store.Artifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r.RunID == "" {
		r.RunID = "test-run"
	}
	f.saved = append(f.saved, r)
	return &store.Artifact{RunID: r.RunID}, nil
}

const cleanHTML = `<html lang="en"><body><h1>Hello</h1><p>Welcome to the service.</p></body></html>`

func TestRunWebPartialWithoutContrast(t *testing.T) {
	renderer := &fakeRenderer{results: []func() (*render.Snapshot, error){
		func() (*render.Snapshot, error) { return snapshotOf(t, cleanHTML), nil },
	}}
	saver := &fakeSaver{}
	e := New(renderer, &fakePDF{}, saver, nil, nil, nil)

	result, err := e.Run(context.Background(), audit.WebTarget("https://example.com/"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Contrast was not collected, so the run is partial, not ok.
	if result.Status != audit.StatusPartial {
		t.Errorf("status = %s, want partial", result.Status)
	}
	if len(result.SkippedChecks) != 1 || result.SkippedChecks[0] != "color-contrast" {
		t.Errorf("skipped = %v, want [color-contrast]", result.SkippedChecks)
	}
	if result.Score != 100 {
		t.Errorf("score = %d, want 100 for a clean page", result.Score)
	}
	if len(saver.saved) != 1 {
		t.Errorf("saved %d results, want 1", len(saver.saved))
	}
}

func TestRunWebOKWithContrast(t *testing.T) {
	renderer := &fakeRenderer{results: []func() (*render.Snapshot, error){
		func() (*render.Snapshot, error) {
			snap := snapshotOf(t, cleanHTML)
			snap.ContrastCollected = true
			snap.Contrast = []render.ContrastSample{
				{Selector: "body > p", Foreground: "rgb(0, 0, 0)", Background: "rgb(255, 255, 255)", FontSizePx: 16},
			}
			return snap, nil
		},
	}}
	e := New(renderer, &fakePDF{}, &fakeSaver{}, nil, nil, nil)

	result, err := e.Run(context.Background(), audit.WebTarget("https://example.com/"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != audit.StatusOK {
		t.Errorf("status = %s, want ok (skipped: %v)", result.Status, result.SkippedChecks)
	}
}

func TestRunRetriesTransientRenderFailure(t *testing.T) {
	renderer := &fakeRenderer{results: []func() (*render.Snapshot, error){
		func() (*render.Snapshot, error) {
			return nil, errors.E(errors.KindRenderFailure, "render", "tab crashed")
		},
		func() (*render.Snapshot, error) { return snapshotOf(t, cleanHTML), nil },
	}}
	e := New(renderer, &fakePDF{}, &fakeSaver{}, nil, nil, nil)

	result, err := e.Run(context.Background(), audit.WebTarget("https://example.com/"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if renderer.calls != 2 {
		t.Errorf("render calls = %d, want 2 (one retry)", renderer.calls)
	}
	if result.Status != audit.StatusPartial {
		t.Errorf("status = %s, want partial after successful retry", result.Status)
	}
}

func TestRunDoesNotRetryTimeout(t *testing.T) {
	renderer := &fakeRenderer{results: []func() (*render.Snapshot, error){
		func() (*render.Snapshot, error) {
			return nil, errors.E(errors.KindNavigationTimeout, "render", "deadline exceeded")
		},
	}}
	saver := &fakeSaver{}
	e := New(renderer, &fakePDF{}, saver, nil, nil, nil)

	result, err := e.Run(context.Background(), audit.WebTarget("https://slow.example.com/"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if renderer.calls != 1 {
		t.Errorf("render calls = %d, want 1 (timeouts are not retried)", renderer.calls)
	}
	if result.Status != audit.StatusFailed || result.Error == "" {
		t.Errorf("result = status %s error %q, want failed with error text", result.Status, result.Error)
	}
	// Failed runs are persisted too.
	if len(saver.saved) != 1 {
		t.Errorf("saved %d results, want 1", len(saver.saved))
	}
}

func TestRunPersistsFailedRunAfterExhaustedRetry(t *testing.T) {
	renderer := &fakeRenderer{results: []func() (*render.Snapshot, error){
		func() (*render.Snapshot, error) {
			return nil, errors.E(errors.KindRenderFailure, "render", "browser gone")
		},
	}}
	e := New(renderer, &fakePDF{}, &fakeSaver{}, nil, nil, nil)

	result, err := e.Run(context.Background(), audit.WebTarget("https://example.com/"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if renderer.calls != 2 {
		t.Errorf("render calls = %d, want 2", renderer.calls)
	}
	if result.Status != audit.StatusFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
	if result.Score != 0 {
		t.Errorf("score = %d, want 0 for failed run", result.Score)
	}
}

func TestRunPDF(t *testing.T) {
	pdfAuditor := &fakePDF{violations: []audit.Violation{
		{RuleID: "pdf-untagged", Severity: severity.Critical, Message: "untagged", Locator: "catalog", Source: audit.KindPDF},
	}}
	e := New(&fakeRenderer{}, pdfAuditor, &fakeSaver{}, nil, nil, nil)

	result, err := e.Run(context.Background(), audit.PDFTarget([]byte("%PDF"), "report.pdf"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != audit.StatusOK {
		t.Errorf("status = %s, want ok", result.Status)
	}
	if result.Score != 75 {
		t.Errorf("score = %d, want 75 (100 - 25 for one critical)", result.Score)
	}
}

func TestRunPDFUnreadable(t *testing.T) {
	pdfAuditor := &fakePDF{err: errors.E(errors.KindUnreadablePDF, "pdfaudit", "not a pdf")}
	e := New(&fakeRenderer{}, pdfAuditor, &fakeSaver{}, nil, nil, nil)

	result, err := e.Run(context.Background(), audit.PDFTarget([]byte("junk"), "junk.pdf"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != audit.StatusFailed {
		t.Errorf("status = %s, want failed for unreadable pdf", result.Status)
	}
}

func TestRunStoreFailureSurfaced(t *testing.T) {
	renderer := &fakeRenderer{results: []func() (*render.Snapshot, error){
		func() (*render.Snapshot, error) { return snapshotOf(t, cleanHTML), nil },
	}}
	saver := &fakeSaver{err: errors.E(errors.KindStoreWrite, "store.Save", "disk full")}
	e := New(renderer, &fakePDF{}, saver, nil, nil, nil)

	result, err := e.Run(context.Background(), audit.WebTarget("https://example.com/"))
	if !errors.IsStoreWrite(err) {
		t.Fatalf("err = %v, want store-write kind", err)
	}
	// The audit outcome is still returned alongside the store failure.
	if result == nil || result.Status != audit.StatusPartial {
		t.Errorf("result = %+v, want the completed audit result", result)
	}
}

func TestRunInvalidTargets(t *testing.T) {
	e := New(&fakeRenderer{}, &fakePDF{}, &fakeSaver{}, nil, nil, nil)

	if _, err := e.Run(context.Background(), audit.Target{Kind: "carrier-pigeon"}); errors.GetKind(err) != errors.KindInvalidInput {
		t.Errorf("unknown kind: err = %v, want invalid-input", err)
	}
	if _, err := e.Run(context.Background(), audit.PDFTarget(nil, "empty.pdf")); errors.GetKind(err) != errors.KindInvalidInput {
		t.Errorf("empty pdf: err = %v, want invalid-input", err)
	}
}

func TestRunRejectedURLIsNotPersisted(t *testing.T) {
	renderer := &fakeRenderer{results: []func() (*render.Snapshot, error){
		func() (*render.Snapshot, error) {
			return nil, errors.E(errors.KindInvalidInput, "render.Controller.Render", "target must be an http(s) URL")
		},
	}}
	saver := &fakeSaver{}
	e := New(renderer, &fakePDF{}, saver, nil, nil, nil)

	result, err := e.Run(context.Background(), audit.WebTarget("ftp://example.com/"))
	if errors.GetKind(err) != errors.KindInvalidInput {
		t.Fatalf("err = %v, want invalid-input", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil for a rejected target", result)
	}
	if renderer.calls != 1 {
		t.Errorf("render calls = %d, want 1 (no retry for a bad URL)", renderer.calls)
	}
	if len(saver.saved) != 0 {
		t.Errorf("saved %d results, want none for a rejected target", len(saver.saved))
	}
}
