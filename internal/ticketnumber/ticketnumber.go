// Package ticketnumber allocates human-readable ticket numbers of the form
// TKT-YYYYMMDD-NNNN, with the four-digit sequence resetting daily (UTC).
package ticketnumber

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Prefix is the constant leading token of every ticket number.
const Prefix = "TKT"

// tokenPattern matches a full ticket number anywhere in a string. This is
// the exact pattern inbound subject-line matching relies on.
var tokenPattern = regexp.MustCompile(`TKT-\d{8}-\d{4}`)

// FindToken returns the first ticket-number token embedded in s, or "".
func FindToken(s string) string {
	return tokenPattern.FindString(s)
}

// MaxFinder looks up the highest allocated number sharing a prefix.
// Implementations return "" when no number with the prefix exists.
type MaxFinder interface {
	MaxTicketNumber(ctx context.Context, prefix string) (string, error)
}

// Allocator produces the next ticket number by scanning the highest existing
// number for today's date and incrementing. Allocation is read-then-write;
// callers guard against concurrent collisions with a unique index on the
// number column and a bounded retry.
type Allocator struct {
	store MaxFinder
	now   func() time.Time
}

// NewAllocator builds an allocator on the wall clock.
func NewAllocator(store MaxFinder) *Allocator {
	return NewAllocatorWithNow(store, time.Now)
}

// NewAllocatorWithNow injects a clock for deterministic tests.
func NewAllocatorWithNow(store MaxFinder, now func() time.Time) *Allocator {
	if now == nil {
		now = time.Now
	}
	return &Allocator{store: store, now: now}
}

// Next returns the next free number for today, sequence starting at 0001.
func (a *Allocator) Next(ctx context.Context) (string, error) {
	datePrefix := fmt.Sprintf("%s-%s-", Prefix, a.now().UTC().Format("20060102"))
	highest, err := a.store.MaxTicketNumber(ctx, datePrefix)
	if err != nil {
		return "", fmt.Errorf("scan ticket numbers: %w", err)
	}

	sequence := 1
	if highest != "" {
		if parsed, ok := sequenceOf(highest); ok {
			sequence = parsed + 1
		}
	}
	return fmt.Sprintf("%s%04d", datePrefix, sequence), nil
}

func sequenceOf(number string) (int, bool) {
	if len(number) < 4 {
		return 0, false
	}
	parsed, err := strconv.Atoi(number[len(number)-4:])
	if err != nil {
		return 0, false
	}
	return parsed, true
}
