package marketdata

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestPreprocessForwardFillsGaps(t *testing.T) {
	var panel PricePanel
	panel.Append(day(1), map[string]float64{"A": 100, "B": 50})
	panel.Append(day(2), map[string]float64{"A": 101})
	panel.Append(day(3), map[string]float64{"A": 102, "B": 52})

	clean := Preprocess(panel, PreprocessOptions{Fill: FillForward})
	if clean.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", clean.Len())
	}
	if px, ok := clean.Price(1, "B"); !ok || px != 50 {
		t.Fatalf("expected gap forward-filled to 50, got %v %v", px, ok)
	}
}

func TestPreprocessDropsLeadingUnfillableRows(t *testing.T) {
	var panel PricePanel
	panel.Append(day(1), map[string]float64{"A": 100})
	panel.Append(day(2), map[string]float64{"A": 101, "B": 51})

	clean := Preprocess(panel, PreprocessOptions{Fill: FillForward})
	// B has no value to forward-fill from on day 1, so that row goes away.
	if clean.Len() != 1 {
		t.Fatalf("expected 1 complete row, got %d", clean.Len())
	}
	if !clean.Time(0).Equal(day(2)) {
		t.Fatalf("expected surviving row at day 2, got %v", clean.Time(0))
	}
}

func TestPreprocessClipsOutliers(t *testing.T) {
	var panel PricePanel
	for d := 1; d <= 20; d++ {
		px := 100 + float64(d)*0.1
		if d == 10 {
			px = 10000 // far beyond three sigma of the rest
		}
		panel.Append(day(d), map[string]float64{"A": px})
	}

	clean := Preprocess(panel, PreprocessOptions{Fill: FillForward})
	px, ok := clean.Price(9, "A")
	if !ok {
		t.Fatalf("expected outlier row to survive via forward fill")
	}
	if px > 200 {
		t.Fatalf("outlier not clipped, got %f", px)
	}
}

func TestPreprocessMinCoverage(t *testing.T) {
	var panel PricePanel
	panel.Append(day(1), map[string]float64{"A": 1, "B": 2})
	panel.Append(day(2), map[string]float64{"A": 1.1, "B": 2.1})

	clean := Preprocess(panel, PreprocessOptions{Fill: FillForward, MinCoverage: 3})
	if clean.Len() != 0 {
		t.Fatalf("expected all rows dropped below coverage floor, got %d", clean.Len())
	}
}

func TestSyntheticFetchDeterministic(t *testing.T) {
	provider := NewSynthetic(zerolog.Nop(), 7)
	symbols := []string{"AAA", "BBB", "CCC"}

	first, err := provider.Fetch(context.Background(), symbols, day(1), day(30))
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if first.Len() != 30 {
		t.Fatalf("expected 30 daily rows, got %d", first.Len())
	}

	second, err := NewSynthetic(zerolog.Nop(), 7).Fetch(context.Background(), symbols, day(1), day(30))
	if err != nil {
		t.Fatalf("second Fetch returned error: %v", err)
	}
	for i := 0; i < first.Len(); i++ {
		for _, sym := range symbols {
			a, _ := first.Price(i, sym)
			b, _ := second.Price(i, sym)
			if a != b {
				t.Fatalf("same seed produced different prices at row %d", i)
			}
		}
	}

	if _, err := provider.Fetch(context.Background(), nil, day(1), day(2)); err == nil {
		t.Fatalf("expected error for empty symbol list")
	}
}

func TestParseStreamSymbol(t *testing.T) {
	if got := parseStreamSymbol("btcusdt@trade"); got != "BTCUSDT" {
		t.Fatalf("unexpected symbol %s", got)
	}
	if got := parseStreamSymbol("ethusdt"); got != "ETHUSDT" {
		t.Fatalf("unexpected symbol %s", got)
	}
}
