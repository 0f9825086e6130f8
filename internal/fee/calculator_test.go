package fee

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestAmountDueZeroElapsed(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	got := AmountDue(now, now, decimal.NewFromInt(200))
	if !got.IsZero() {
		t.Fatalf("expected zero amount, got %s", got)
	}
}

func TestAmountDueOneHour(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	got := AmountDue(now.Add(-time.Hour), now, decimal.NewFromInt(200))
	if !got.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected 200, got %s", got)
	}
}

func TestAmountDueRounding(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		elapsed time.Duration
		rate    int64
		want    string
	}{
		{"ninety minutes", 90 * time.Minute, 200, "300"},
		{"one second", time.Second, 200, "0.06"},
		{"one minute", time.Minute, 150, "2.5"},
		{"day and a half", 36 * time.Hour, 200, "7200"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want, err := decimal.NewFromString(tc.want)
			if err != nil {
				t.Fatalf("bad expectation %q: %v", tc.want, err)
			}
			got := AmountDue(now.Add(-tc.elapsed), now, decimal.NewFromInt(tc.rate))
			if !got.Equal(want) {
				t.Fatalf("elapsed %s at %d/h: expected %s, got %s", tc.elapsed, tc.rate, want, got)
			}
		})
	}
}

func TestAmountDueMonotonic(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	rate := decimal.NewFromInt(200)
	prev := decimal.Zero
	for _, elapsed := range []time.Duration{0, time.Second, time.Minute, time.Hour, 5 * time.Hour, 48 * time.Hour} {
		got := AmountDue(now.Add(-elapsed), now, rate)
		if got.LessThan(prev) {
			t.Fatalf("amount decreased at elapsed %s: %s < %s", elapsed, got, prev)
		}
		prev = got
	}
}

func TestAmountDueLinearInRate(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	entry := now.Add(-2 * time.Hour)
	single := AmountDue(entry, now, decimal.NewFromInt(100))
	double := AmountDue(entry, now, decimal.NewFromInt(200))
	if !double.Equal(single.Mul(decimal.NewFromInt(2))) {
		t.Fatalf("doubling rate should double amount: %s vs %s", single, double)
	}
}

func TestAmountDueFutureEntry(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	got := AmountDue(now.Add(time.Hour), now, decimal.NewFromInt(200))
	if !got.IsZero() {
		t.Fatalf("future entry should charge nothing, got %s", got)
	}
}
