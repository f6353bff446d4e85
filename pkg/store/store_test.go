package store

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/errors"
	"github.com/accesslens/accesslens/pkg/severity"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(started time.Time) *audit.Result {
	return &audit.Result{
		Target: audit.WebTarget("https://example.com/"),
		Violations: []audit.Violation{
			{RuleID: "img-alt", Severity: severity.Critical, Message: "Image has no alt attribute.", Locator: "body > img", Source: audit.KindWeb},
			{RuleID: "doc-lang", Severity: severity.Serious, Message: "No lang attribute.", Locator: "html", Source: audit.KindWeb},
		},
		Score:      65,
		Status:     audit.StatusOK,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	result := sampleResult(time.Now().UTC().Truncate(time.Second))

	art, err := s.Save(context.Background(), result)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if art.RunID == "" || art.RunID != result.RunID {
		t.Fatalf("artifact run ID %q does not match result %q", art.RunID, result.RunID)
	}
	for _, p := range []string{art.SummaryPath, art.ViolationsPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing artifact file %s: %v", p, err)
		}
	}

	loaded, err := s.Load(result.RunID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Score != result.Score {
		t.Errorf("loaded score = %d, want %d", loaded.Score, result.Score)
	}
	if !reflect.DeepEqual(loaded.Violations, result.Violations) {
		t.Errorf("loaded violations differ:\n got %+v\nwant %+v", loaded.Violations, result.Violations)
	}
}

func TestSaveLeavesNoStagingBehind(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Save(context.Background(), sampleResult(time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(s.RunsDir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), stagingPrefix) {
			t.Errorf("staging dir %s left behind after save", e.Name())
		}
	}
}

func TestLoadNotFound(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"nope", "", "../escape", ".stage-x"} {
		if _, err := s.Load(id); !errors.IsNotFound(err) {
			t.Errorf("Load(%q): err = %v, want not-found kind", id, err)
		}
	}
}

func TestConcurrentSavesGetUniqueIDs(t *testing.T) {
	s := newTestStore(t)
	started := time.Now()

	const n = 20
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := sampleResult(started)
			if _, err := s.Save(context.Background(), r); err != nil {
				t.Errorf("Save: %v", err)
				return
			}
			ids[i] = r.RunID
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		if id == "" {
			continue
		}
		if seen[id] {
			t.Fatalf("run ID %q assigned twice", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("unique run IDs = %d, want %d", len(seen), n)
	}
}

func TestListSince(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().UTC().Truncate(time.Second)

	old := sampleResult(base.Add(-48 * time.Hour))
	recent := sampleResult(base.Add(-1 * time.Hour))
	for _, r := range []*audit.Result{old, recent} {
		if _, err := s.Save(context.Background(), r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	all, err := s.List(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List(all) = %d entries, want 2", len(all))
	}
	if all[0].RunID != recent.RunID {
		t.Errorf("List order: first = %s, want newest %s", all[0].RunID, recent.RunID)
	}

	since, err := s.List(context.Background(), base.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("List since: %v", err)
	}
	if len(since) != 1 || since[0].RunID != recent.RunID {
		t.Errorf("List(since) = %+v, want only %s", since, recent.RunID)
	}
}

func TestForget(t *testing.T) {
	s := newTestStore(t)
	r := sampleResult(time.Now())
	if _, err := s.Save(context.Background(), r); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Forget(context.Background(), r.RunID); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	got, err := s.List(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List after Forget = %+v, want empty", got)
	}
}

func TestRebuild(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r := sampleResult(time.Now().UTC().Truncate(time.Second))
	if _, err := s.Save(context.Background(), r); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Close()

	// Simulate a lost index.
	if err := os.Remove(filepath.Join(dir, indexFile)); err != nil {
		t.Fatalf("remove index: %v", err)
	}

	s2, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	if err := s2.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	got, err := s2.List(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].RunID != r.RunID {
		t.Errorf("List after Rebuild = %+v, want run %s", got, r.RunID)
	}
}
