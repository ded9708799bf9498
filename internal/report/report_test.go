package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/pable/go-bpb-metrics/internal/model"
)

func TestWilsonCI(t *testing.T) {
	lo, hi := WilsonCI(0, 0)
	if lo != 0 || hi != 1 {
		t.Errorf("n=0 interval = (%v, %v), want (0, 1)", lo, hi)
	}

	// 50 of 100: interval is centered near 0.5 and strictly inside (0, 1).
	lo, hi = WilsonCI(50, 100)
	if !(lo > 0.40 && lo < 0.5 && hi > 0.5 && hi < 0.60) {
		t.Errorf("50/100 interval = (%v, %v)", lo, hi)
	}
	// Wilson never leaves [0, 1] even at the extremes.
	lo, hi = WilsonCI(100, 100)
	if hi > 1 || lo < 0 {
		t.Errorf("100/100 interval = (%v, %v)", lo, hi)
	}
	lo, _ = WilsonCI(0, 100)
	if lo < 0 {
		t.Errorf("0/100 lower bound = %v", lo)
	}
}

func TestClusterSummaryTable_EmptyClusterSentinel(t *testing.T) {
	var buf bytes.Buffer
	PrintClusterSummaryTable(&buf, []model.ClusterSummary{
		{Cluster: 0, Matches: 40, WinRatePct: 62.5, MedianFinalRound: 13},
		{Cluster: 1, Matches: 0, WinRatePct: math.NaN(), MedianFinalRound: math.NaN()},
	})

	out := buf.String()
	if strings.Contains(out, "NaN") {
		t.Errorf("table rendered a NaN literal:\n%s", out)
	}
	if !strings.Contains(out, "—") {
		t.Errorf("empty cluster should render the sentinel:\n%s", out)
	}
	if !strings.Contains(out, "62.5%") {
		t.Errorf("winrate missing:\n%s", out)
	}
}
