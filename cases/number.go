package cases

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/linesmerrill/legal-case-api/models"
)

// Counter hands out the next value of a named sequence. Implementations must
// make each increment atomic per key.
type Counter interface {
	Next(ctx context.Context, key string) (int64, error)
}

// Numberer mints case numbers from a per-year counter
type Numberer struct {
	Counters Counter
	Now      func() time.Time
}

// Assign sets c.CaseNumber if it is still empty. A case that already carries a
// number keeps it, so the number is minted exactly once.
func (n Numberer) Assign(ctx context.Context, c *models.Case) error {
	if c.CaseNumber != "" {
		return nil
	}
	year := n.now().Year()
	seq, err := n.Counters.Next(ctx, CounterKey(year))
	if err != nil {
		return fmt.Errorf("next case sequence for %d: %w", year, err)
	}
	c.CaseNumber = Format(year, seq)
	return nil
}

func (n Numberer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

// CounterKey is the counters document name for a year
func CounterKey(year int) string {
	return fmt.Sprintf("case_%d", year)
}

// Format renders a case number such as CASE20250007
func Format(year int, seq int64) string {
	return fmt.Sprintf("CASE%d%04d", year, seq)
}

// Parse splits a case number back into its year and sequence
func Parse(number string) (int, int64, error) {
	if !strings.HasPrefix(number, "CASE") || len(number) < 12 {
		return 0, 0, fmt.Errorf("malformed case number %q", number)
	}
	year, err := strconv.Atoi(number[4:8])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed case number %q: %w", number, err)
	}
	seq, err := strconv.ParseInt(number[8:], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed case number %q: %w", number, err)
	}
	return year, seq, nil
}
