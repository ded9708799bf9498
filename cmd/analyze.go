package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"

	"github.com/pable/go-bpb-metrics/internal/artifact"
	"github.com/pable/go-bpb-metrics/internal/model"
)

const analyzeSystemPrompt = `You are a Backpack Battles build analyst. You are given structured data
mined from scraped match logs and a question from the player.

Rules:
- Answer ONLY from the data provided. Never invent or estimate statistics.
- Always cite specific numbers when making a claim.
- If the data is insufficient to answer confidently, say so explicitly.
- Be concise and actionable: focus on what the player can actually change
  about their builds.
- Avoid generic game advice unless it directly explains a pattern in the data.

Metrics glossary:
- Winrate: share of matches won. The dataset baseline is included for context.
- Final round: round the match ended on; higher means a longer run.
- Cluster: a group of matches with similar final builds (k-means on item presence).
- Core items: items that define a cluster (common inside it and over-represented
  versus the whole dataset).
- Lift: in-cluster adoption rate over overall adoption rate. >1 means the
  cluster favors the item.
- Pair lift / PMI: how much more often two items appear together than chance.
  lift > 1.5 and PMI > 0.5 indicate a real synergy.
- Variation score: lift x PMI x average in-cluster rate of the pair.`

var (
	analyzeModel  string
	analyzeAPIKey string
	analyzeScope  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <question>",
	Short: "AI-powered grounded build analysis (requires ANTHROPIC_API_KEY)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "claude-haiku-4-5-20251001", "Anthropic model to use")
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")
	analyzeCmd.Flags().StringVar(&analyzeScope, "scope", "final", "scope tag of the artifacts to analyze")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	question := args[0]

	db, err := openExistingDB()
	if err != nil {
		return err
	}
	defer db.Close()

	overview, err := db.Overview()
	if err != nil {
		return fmt.Errorf("query overview: %w", err)
	}
	if overview.Matches == 0 {
		return fmt.Errorf("no matches stored; run 'bpbmetrics ingest' first")
	}

	contextJSON, err := buildAnalysisContext(overview)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}

	return callAnthropic(cmd.Context(), analyzeAPIKey, analyzeModel, contextJSON, question)
}

// buildAnalysisContext serialises the overview plus whatever cluster and
// variation artifacts exist into compact JSON. Missing artifacts are
// skipped, not fatal: the model is told what it has.
func buildAnalysisContext(overview model.Overview) (string, error) {
	doc := map[string]interface{}{
		"subject": "build_statistics",
		"overview": map[string]interface{}{
			"matches":           overview.Matches,
			"wins":              overview.Wins,
			"losses":            overview.Losses,
			"avg_final_round":   round2(overview.AvgFinalRound),
			"min_final_round":   overview.MinFinalRound,
			"max_final_round":   overview.MaxFinalRound,
			"share_long_finals": round2(overview.ShareLongFinals),
		},
	}

	if cores, scopeTag, err := artifact.ReadCoreItems(outDir); err == nil {
		type coreEntry struct {
			Cluster int      `json:"cluster"`
			Items   []string `json:"core_items"`
			Source  string   `json:"source"`
		}
		entries := make([]coreEntry, 0, len(cores))
		for _, c := range cores {
			entries = append(entries, coreEntry{Cluster: c.Cluster, Items: c.Items, Source: string(c.Source)})
		}
		doc["clusters"] = entries
		doc["scope"] = scopeTag
	}

	if pairs, err := artifact.ReadPairs(outDir, analyzeScope); err == nil {
		type pairEntry struct {
			A    string  `json:"item_a"`
			B    string  `json:"item_b"`
			NAB  int     `json:"n_ab"`
			Lift float64 `json:"lift"`
			PMI  float64 `json:"pmi"`
		}
		limit := 30
		if len(pairs) < limit {
			limit = len(pairs)
		}
		entries := make([]pairEntry, 0, limit)
		for _, p := range pairs[:limit] {
			entries = append(entries, pairEntry{A: p.A, B: p.B, NAB: p.NAB, Lift: round2(p.Lift), PMI: round2(p.PMI)})
		}
		doc["top_pairs"] = entries
	}

	b, err := json.Marshal(doc)
	return string(b), err
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func callAnthropic(ctx context.Context, apiKey, modelID, dataJSON, question string) error {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: set ANTHROPIC_API_KEY or use --api-key")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	userMsg := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", dataJSON, question)

	fmt.Fprintln(os.Stdout, "\n─── AI Analysis ─────────────────────────────────────")

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: analyzeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})

	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				fmt.Fprint(os.Stdout, delta.Delta.AsTextDelta().Text)
			}
		}
	}
	fmt.Fprintln(os.Stdout, "\n─────────────────────────────────────────────────────")

	if err := stream.Err(); err != nil {
		// Provide a cleaner error message for common API errors.
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return fmt.Errorf("API authentication failed — check your API key")
		}
		return fmt.Errorf("streaming error: %w", err)
	}
	return nil
}
