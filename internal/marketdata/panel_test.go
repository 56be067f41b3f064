package marketdata

import (
	"math"
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestPanelAppendNormalizesAndOrders(t *testing.T) {
	var panel PricePanel
	est, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	panel.Append(day(2), map[string]float64{"AAPL": 101})
	panel.Append(day(1).In(est), map[string]float64{"AAPL": 100})
	panel.Append(day(3), map[string]float64{"AAPL": 102})

	if panel.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", panel.Len())
	}
	for i := 1; i < panel.Len(); i++ {
		if panel.Time(i).Before(panel.Time(i - 1)) {
			t.Fatalf("rows out of order at %d", i)
		}
	}
	if panel.Time(0).Location() != time.UTC {
		t.Fatalf("expected UTC timestamps, got %v", panel.Time(0).Location())
	}
	if px, ok := panel.Price(0, "AAPL"); !ok || px != 100 {
		t.Fatalf("expected earliest row to hold price 100, got %v %v", px, ok)
	}
}

func TestPanelBetweenInclusive(t *testing.T) {
	var panel PricePanel
	for d := 1; d <= 5; d++ {
		panel.Append(day(d), map[string]float64{"MSFT": float64(100 + d)})
	}

	start, end := day(2), day(4)
	sub := panel.Between(&start, &end)
	if sub.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", sub.Len())
	}
	if !sub.Time(0).Equal(day(2)) || !sub.Time(2).Equal(day(4)) {
		t.Fatalf("unexpected bounds %v .. %v", sub.Time(0), sub.Time(2))
	}

	late := day(9)
	if got := panel.Between(&late, nil); got.Len() != 0 {
		t.Fatalf("expected empty panel past the end, got %d rows", got.Len())
	}
	if got := panel.Between(nil, nil); got.Len() != 5 {
		t.Fatalf("open bounds should keep everything, got %d rows", got.Len())
	}
}

func TestPanelUpTo(t *testing.T) {
	var panel PricePanel
	for d := 1; d <= 4; d++ {
		panel.Append(day(d), map[string]float64{"SPY": float64(d)})
	}
	sub := panel.UpTo(1)
	if sub.Len() != 2 {
		t.Fatalf("expected inclusive prefix of 2 rows, got %d", sub.Len())
	}
	if panel.UpTo(-1).Len() != 0 {
		t.Fatalf("negative index should yield empty panel")
	}
	if panel.UpTo(99).Len() != 4 {
		t.Fatalf("overshoot should clamp to full panel")
	}
}

func TestPanelColumnMarksGaps(t *testing.T) {
	var panel PricePanel
	panel.Append(day(1), map[string]float64{"A": 1, "B": 2})
	panel.Append(day(2), map[string]float64{"A": 1.5})

	col := panel.Column("B")
	if col[0] != 2 || !math.IsNaN(col[1]) {
		t.Fatalf("expected [2, NaN], got %v", col)
	}
	syms := panel.Symbols()
	if len(syms) != 2 || syms[0] != "A" || syms[1] != "B" {
		t.Fatalf("unexpected symbol union %v", syms)
	}
}
