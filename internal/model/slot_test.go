package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mkRange(t *testing.T, startMin, endMin int) TimeRange {
	t.Helper()
	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	return TimeRange{
		Start: base.Add(time.Duration(startMin) * time.Minute),
		End:   base.Add(time.Duration(endMin) * time.Minute),
	}
}

func TestTimeRangeOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a    TimeRange
		b    TimeRange
		want bool
	}{
		{
			name: "disjoint ranges",
			a:    mkRange(t, 0, 30),
			b:    mkRange(t, 60, 90),
			want: false,
		},
		{
			name: "partial overlap",
			a:    mkRange(t, 0, 45),
			b:    mkRange(t, 30, 60),
			want: true,
		},
		{
			name: "identical ranges",
			a:    mkRange(t, 0, 30),
			b:    mkRange(t, 0, 30),
			want: true,
		},
		{
			name: "containment",
			a:    mkRange(t, 0, 60),
			b:    mkRange(t, 15, 45),
			want: true,
		},
		{
			name: "back to back is not an overlap",
			a:    mkRange(t, 0, 30),
			b:    mkRange(t, 30, 60),
			want: false,
		},
		{
			name: "shared start",
			a:    mkRange(t, 0, 30),
			b:    mkRange(t, 0, 15),
			want: true,
		},
		{
			name: "shared end",
			a:    mkRange(t, 0, 30),
			b:    mkRange(t, 15, 30),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			// Overlap is symmetric.
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestTimeRangeIsValid(t *testing.T) {
	assert.True(t, mkRange(t, 0, 30).IsValid())
	assert.False(t, mkRange(t, 30, 0).IsValid())

	// Zero-length ranges are invalid.
	assert.False(t, mkRange(t, 30, 30).IsValid())
}

func TestSlotRange(t *testing.T) {
	r := mkRange(t, 0, 30)
	s := &Slot{StartTime: r.Start, EndTime: r.End}
	assert.Equal(t, r, s.Range())
}
