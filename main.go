// Package main is the entry point for the bpbmetrics CLI tool, which ingests
// scraped Backpack Battles match logs and mines item/build statistics.
package main

import "github.com/pable/go-bpb-metrics/cmd"

func main() {
	cmd.Execute()
}
