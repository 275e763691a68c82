package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gcal "google.golang.org/api/calendar/v3"
)

func TestStatusFromColorID(t *testing.T) {
	tests := []struct {
		colorID string
		want    Status
	}{
		{"", StatusNeedsBilling},
		{"5", StatusNeedsBillingAnnotated},
		{"3", StatusPaid},
		{"4", StatusCancelled},
		{"7", StatusNeedsBilling},
		{"banana", StatusNeedsBilling},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFromColorID(tt.colorID), "color %q", tt.colorID)
	}
}

func TestStatusColorIDRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusNeedsBilling, StatusNeedsBillingAnnotated, StatusPaid, StatusCancelled} {
		assert.Equal(t, s, StatusFromColorID(s.ColorID()), s.String())
	}
}

func TestStatusBillable(t *testing.T) {
	assert.True(t, StatusNeedsBilling.Billable())
	assert.True(t, StatusNeedsBillingAnnotated.Billable())
	assert.True(t, StatusPaid.Billable())
	assert.False(t, StatusCancelled.Billable())
}

func TestParseEventStart(t *testing.T) {
	t.Run("timed", func(t *testing.T) {
		got, ok := parseEventStart(&gcal.EventDateTime{DateTime: "2026-03-05T10:00:00+02:00"})
		assert.True(t, ok)
		assert.Equal(t, 5, got.Day())
		assert.Equal(t, 10, got.Hour())
	})
	t.Run("all day", func(t *testing.T) {
		got, ok := parseEventStart(&gcal.EventDateTime{Date: "2026-03-05"})
		assert.True(t, ok)
		assert.Equal(t, 5, got.Day())
	})
	t.Run("missing", func(t *testing.T) {
		_, ok := parseEventStart(nil)
		assert.False(t, ok)
		_, ok = parseEventStart(&gcal.EventDateTime{})
		assert.False(t, ok)
	})
	t.Run("garbage", func(t *testing.T) {
		_, ok := parseEventStart(&gcal.EventDateTime{DateTime: "yesterday"})
		assert.False(t, ok)
	})
}
