package model

// Round results as stored in the facts table. A match's terminal result is
// the result of its final round.
const (
	ResultWin  = "win"
	ResultLoss = "loss"
)

// ---- Raw facts produced by ingestion ----

// Round is one recorded round of a match.
type Round struct {
	MatchID    int64
	RoundIndex int
	Result     string
	Gold       int
	SourceFile string
}

// RoundItem is one (match, round, item) fact with the carried count.
type RoundItem struct {
	MatchID    int64
	RoundIndex int
	ItemName   string
	ItemCount  int
	SourceFile string
}

// Match is the per-match view derived from the facts: final round number
// plus the terminal result.
type Match struct {
	MatchID    int64
	FinalRound int
	Result     string
	SourceFile string
}

func (m *Match) Won() bool { return m.Result == ResultWin }

// ItemFact is one item present in a match within the analysis scope, joined
// with the match's terminal labels. Input row for the feature matrix builder.
type ItemFact struct {
	MatchID    int64
	ItemName   string
	Result     string
	FinalRound int
}

// ScopeItem is one distinct (match, item) presence fact within a pair scope.
type ScopeItem struct {
	MatchID  int64
	ItemName string
}

// ItemFreq is a raw item frequency row, used for the summary report and for
// threshold-recalibration diagnostics when a filter empties the dataset.
type ItemFreq struct {
	ItemName string
	Count    int // fact rows carrying the item
	Matches  int // distinct matches carrying the item
}

// ---- Analysis outputs ----

// ClusterSummary describes one cluster of matches. WinRatePct and
// MedianFinalRound are NaN for an empty cluster; renderers and CSV writers
// must emit a defined sentinel, never "NaN".
type ClusterSummary struct {
	Cluster          int
	Matches          int
	WinRatePct       float64
	MedianFinalRound float64
}

// ClusterItemStat holds the per-(cluster, item) presence statistics.
// Lift is 0 whenever OverallRate is 0; it is never NaN or Inf.
type ClusterItemStat struct {
	Cluster       int
	Item          string
	ClusterRate   float64
	ClusterCount  int
	OverallRate   float64
	OverallCount  int
	Lift          float64
	RateAdvantage float64
}

// CoreSource records which selection phase produced a core item set.
type CoreSource string

const (
	// CoreSourcePrimary: the threshold predicate (rate, count, lift, staple)
	// yielded at least one eligible item.
	CoreSourcePrimary CoreSource = "primary"
	// CoreSourceFallback: no item passed the thresholds; the set is the top
	// items by raw cluster frequency instead.
	CoreSourceFallback CoreSource = "fallback"
)

// CoreItemSet is the representative item set for one cluster. Items is never
// empty for a non-empty cluster.
type CoreItemSet struct {
	Cluster   int
	Items     []string // ordered, at most the configured top-k
	TopByFreq []string // top items by (cluster_rate, cluster_count), no thresholds
	Source    CoreSource
}

// Pair is one unordered item pair (A < B lexicographically) with its global
// association statistics over a scope universe of M matches.
type Pair struct {
	A, B        string
	NAB, NA, NB int
	M           int
	PAB, PA, PB float64
	Lift        float64
	PMI         float64
}

// VariationType classifies how a variation pair relates to the cluster's
// core item set.
type VariationType string

const (
	VariationCorePair VariationType = "core-pair"
	VariationCoreFlex VariationType = "core+flex"
	VariationFlexPair VariationType = "flex-pair"
)

// Variation is one synthesized two-item build fragment for a cluster,
// carrying every scoring input so the ranking can be audited.
type Variation struct {
	Cluster      int
	Rank         int
	CorePreview  []string
	Type         VariationType
	Anchor       []string  // the core item(s) of the pair; empty for flex-pair
	Items        [2]string // sorted for display
	Lift         float64
	PMI          float64
	PairMatches  int
	ClusterRateA float64
	ClusterRateB float64
	Score        float64
}

// ---- Baseline / winrate reports ----

// Overview is the high-level database summary.
type Overview struct {
	Matches         int
	Wins            int
	Losses          int
	AvgFinalRound   float64
	MinFinalRound   int
	MaxFinalRound   int
	ShareLongFinals float64 // fraction of matches whose final round is >= 16
}

// RoundReached is the per-round denominator: matches that reached the round.
type RoundReached struct {
	Round   int
	Matches int
}

// FinalRoundWinrate is the winrate of matches grouped by their final round.
type FinalRoundWinrate struct {
	FinalRound int
	Matches    int
	Winrate    float64
}

// RoundItemWinrate is one (round, item) row of the relative-winrate report:
// winrate of matches carrying the item in that round versus those without,
// over the same denominator, with 95% Wilson intervals for both rates.
type RoundItemWinrate struct {
	Round           int
	Item            string
	NReached        int
	WinsWith        int
	WinsWithout     int
	WinrateWith     float64
	WinrateWithout  float64
	DeltaWinrate    float64
	WilsonWithLo    float64
	WilsonWithHi    float64
	WilsonWithoutLo float64
	WilsonWithoutHi float64
}
