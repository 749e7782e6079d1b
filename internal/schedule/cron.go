// Package schedule validates function invocation schedules.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// CronParser wraps robfig/cron for parsing cron expressions.
type CronParser struct {
	parser cron.Parser
}

// NewCronParser creates a parser accepting five-field expressions and
// descriptors such as "@daily".
func NewCronParser() *CronParser {
	return &CronParser{
		parser: cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		),
	}
}

// Parse parses a cron expression and returns a schedule.
func (p *CronParser) Parse(expression string) (cron.Schedule, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, fmt.Errorf("parsing cron expression: empty expression")
	}

	schedule, err := p.parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parsing cron expression: %w", err)
	}
	return schedule, nil
}

// Validate reports whether expression is a usable schedule.
func (p *CronParser) Validate(expression string) error {
	_, err := p.Parse(expression)
	return err
}

// NextRun calculates the next run time for a cron expression, in UTC.
func (p *CronParser) NextRun(expression string, after time.Time) (time.Time, error) {
	schedule, err := p.Parse(expression)
	if err != nil {
		return time.Time{}, err
	}

	return schedule.Next(after.UTC()), nil
}

var defaultParser = NewCronParser()

// Validate checks expression with the default parser.
func Validate(expression string) error {
	return defaultParser.Validate(expression)
}

// NextRun computes the next run with the default parser.
func NextRun(expression string, after time.Time) (time.Time, error) {
	return defaultParser.NextRun(expression, after)
}
