// Package cronsched wraps the injected cron expression parser behind the
// minimal interface the dispatch core actually needs: given an expression
// and a "now" instant, produce the next firing instant. The core never
// inspects the expression itself; this package is the one place that does.
package cronsched

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cherish-ltt/lynn-sundial/pkg/sundialerr"
)

// parser accepts the quartz-style six-field dialect (seconds first) that
// the scheduler's example expressions use, e.g. "0/1 * * * * ?".
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule is an opaque handle producing the next firing instant strictly
// after a given wall time. It is safe for concurrent use.
type Schedule struct {
	expr cron.Schedule
}

// Parse compiles a cron expression into a Schedule. The quartz-style "?"
// wildcard (used in the dom/dow fields by the original dialect) is
// normalized to "*" first, since robfig/cron/v3 has no native "?" support.
func Parse(expr string) (*Schedule, error) {
	normalized := strings.ReplaceAll(expr, "?", "*")
	s, err := parser.Parse(normalized)
	if err != nil {
		return nil, sundialerr.ErrCronParse
	}
	return &Schedule{expr: s}, nil
}

// Next returns the first instant strictly after now per this schedule, and
// false if the schedule yields no further instant.
func (s *Schedule) Next(now time.Time) (time.Time, bool) {
	next := s.expr.Next(now)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}
