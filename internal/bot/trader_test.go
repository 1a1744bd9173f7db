package bot

import (
	"fmt"
	"sync"
	"testing"

	"github.com/solatra/solatra-backend/internal/config"
)

func newTestTrader() *Trader {
	return NewTrader(&config.Config{}, nil, nil, nil, nil, nil, nil, nil, nil, nil)
}

func TestHoldingsBookkeeping(t *testing.T) {
	tr := newTestTrader()

	if tr.held("mintA") {
		t.Fatal("fresh trader should hold nothing")
	}
	tr.setHolding("mintA", &holding{symbol: "AAA"})
	tr.setHolding("mintB", &holding{symbol: "BBB"})
	if !tr.held("mintA") || !tr.held("mintB") {
		t.Fatal("expected both mints tracked")
	}
	if n := tr.holdingCount(); n != 2 {
		t.Fatalf("holding count: got %d, want 2", n)
	}
	tr.removeHolding("mintA")
	if tr.held("mintA") {
		t.Fatal("mintA should be gone after removal")
	}
	mints := tr.OpenHoldings()
	if len(mints) != 1 || mints[0] != "mintB" {
		t.Fatalf("unexpected open holdings: %v", mints)
	}
}

func TestHoldingsConcurrentEntrySweep(t *testing.T) {
	// The scan scheduler inserts new holdings from its own goroutine while
	// the run loop iterates and deletes. Run under the race detector.
	tr := newTestTrader()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			tr.setHolding(fmt.Sprintf("mint-%d", i%8), &holding{symbol: "TKN"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			for mint := range tr.snapshotHoldings() {
				tr.removeHolding(mint)
			}
			tr.holdingCount()
			tr.OpenHoldings()
		}
	}()
	wg.Wait()

	for _, mint := range tr.OpenHoldings() {
		tr.removeHolding(mint)
	}
	if n := tr.holdingCount(); n != 0 {
		t.Fatalf("expected empty holdings after sweep, got %d", n)
	}
}
