package ticketnumber

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMaxFinder struct {
	byPrefix map[string]string
	err      error
}

func (f *fakeMaxFinder) MaxTicketNumber(_ context.Context, prefix string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.byPrefix[prefix], nil
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, 1, 1, 23, 30, 0, 0, time.UTC)
	}
}

func TestNextStartsAtOne(t *testing.T) {
	alloc := NewAllocatorWithNow(&fakeMaxFinder{byPrefix: map[string]string{}}, fixedClock())
	number, err := alloc.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "TKT-20250101-0001", number)
}

func TestNextIncrementsHighest(t *testing.T) {
	store := &fakeMaxFinder{byPrefix: map[string]string{
		"TKT-20250101-": "TKT-20250101-0042",
	}}
	alloc := NewAllocatorWithNow(store, fixedClock())
	number, err := alloc.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "TKT-20250101-0043", number)
}

func TestNextUsesUTCDate(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	local := time.FixedZone("UTC-5", -5*3600)
	clock := func() time.Time {
		return time.Date(2025, 1, 1, 23, 30, 0, 0, local)
	}
	alloc := NewAllocatorWithNow(&fakeMaxFinder{byPrefix: map[string]string{}}, clock)
	number, err := alloc.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "TKT-20250102-0001", number)
}

func TestNextPropagatesStoreError(t *testing.T) {
	alloc := NewAllocatorWithNow(&fakeMaxFinder{err: errors.New("db down")}, fixedClock())
	_, err := alloc.Next(context.Background())
	require.Error(t, err)
}

func TestFindToken(t *testing.T) {
	assert.Equal(t, "TKT-20250101-0003", FindToken("Re: [TKT-20250101-0003] printer on fire"))
	assert.Equal(t, "", FindToken("no token here"))
	assert.Equal(t, "", FindToken("TKT-2025-01"))
}
