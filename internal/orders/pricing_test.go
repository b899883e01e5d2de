package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuoteForTiers(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		length int
		rush   bool
		price  string
		due    time.Duration
	}{
		{1000, false, "14.99", 24 * time.Hour},
		{1500, false, "14.99", 24 * time.Hour},
		{1501, false, "19.99", 24 * time.Hour},
		{2501, false, "24.99", 24 * time.Hour},
		{1000, true, "22.99", time.Hour},
		{5000, true, "32.99", time.Hour},
	}
	for _, tc := range cases {
		q := QuoteFor(tc.length, tc.rush, now)
		assert.Equal(t, tc.price, q.Price.StringFixed(2), "length %d rush %v", tc.length, tc.rush)
		assert.Equal(t, now.Add(tc.due), q.DueAt)
	}
}
