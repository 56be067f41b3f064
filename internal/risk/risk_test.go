package risk

import "testing"

func TestAllow(t *testing.T) {
	limits := Limits{MaxNotionalPerTrade: 100}
	if !limits.Allow(100) {
		t.Fatalf("notional at the cap should pass")
	}
	if limits.Allow(100.01) {
		t.Fatalf("notional above the cap should fail")
	}
	if !(Limits{}).Allow(1e9) {
		t.Fatalf("zero cap should disable the check")
	}
}

func TestBreached(t *testing.T) {
	limits := Limits{KillSwitchDrawdown: 0.2}
	if limits.Breached(90, 100) {
		t.Fatalf("10%% drawdown should not trip a 20%% switch")
	}
	if !limits.Breached(80, 100) {
		t.Fatalf("20%% drawdown should trip")
	}
	if (Limits{}).Breached(0, 100) {
		t.Fatalf("zero threshold should disable the switch")
	}
}
