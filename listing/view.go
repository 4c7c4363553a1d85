package listing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/cases"
	"github.com/linesmerrill/legal-case-api/models"
)

// CaseSource fetches the full case collection
type CaseSource interface {
	ListCases(ctx context.Context) ([]models.Case, error)
}

// View is the state behind the case list screen. The collection is fetched
// once per Refresh and every filter change is evaluated in memory.
type View struct {
	Source CaseSource
	Now    func() time.Time

	mu      sync.RWMutex
	cases   []models.Case
	filter  Filter
	loading bool
	err     error
}

// NewView creates a view reading from src
func NewView(src CaseSource) *View {
	return &View{Source: src}
}

func (v *View) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Refresh refetches the collection. If ctx is cancelled before the fetch
// completes the result is discarded and the view keeps its previous state.
func (v *View) Refresh(ctx context.Context) error {
	v.mu.Lock()
	v.loading = true
	v.mu.Unlock()

	cs, err := v.Source.ListCases(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = false
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		v.err = err
		return err
	}
	v.err = nil
	v.cases = cs
	return nil
}

// Watch refreshes the view every time a case event arrives, until ctx ends
// or events is closed
func (v *View) Watch(ctx context.Context, events <-chan models.CaseEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := v.Refresh(ctx); err != nil && ctx.Err() == nil {
				zap.S().Warnw("failed to refresh cases after event", "event", ev.Type, "caseId", ev.CaseID, "error", err)
			}
		}
	}
}

// SetFilter replaces the active filter
func (v *View) SetFilter(f Filter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = f
}

// Filter returns the active filter
func (v *View) Filter() Filter {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.filter
}

// Visible returns the cases passing the active filter with their age filled in
func (v *View) Visible() []models.Case {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := Apply(v.cases, v.filter)
	now := v.now()
	for i := range out {
		out[i].CaseAge = cases.Age(out[i], now)
	}
	return out
}

// Counts returns how many cases are shown and how many were fetched
func (v *View) Counts() (shown, total int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(Apply(v.cases, v.filter)), len(v.cases)
}

// Courts lists the court filter options for the fetched collection
func (v *View) Courts() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Courts(v.cases)
}

// Alerts returns the upcoming hearing alerts for the fetched collection
func (v *View) Alerts() []models.HearingAlert {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return UpcomingHearings(v.cases, v.now())
}

// Loading reports whether a refresh is in flight
func (v *View) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loading
}

// Err returns the error of the last completed refresh
func (v *View) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}

// Remove drops a case locally after it was deleted
func (v *View) Remove(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	kept := make([]models.Case, 0, len(v.cases))
	for _, c := range v.cases {
		if c.ID.Hex() != id {
			kept = append(kept, c)
		}
	}
	v.cases = kept
}
