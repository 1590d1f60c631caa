package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/timmy/copyscale/internal/domain"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	muted   = color.New(color.FgHiBlack)
)

func riskColor(level domain.RiskLevel) *color.Color {
	switch level {
	case domain.RiskHigh:
		return color.New(color.FgRed, color.Bold)
	case domain.RiskMedium:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgGreen, color.Bold)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(r domain.SimilarityResult) {
	riskColor(r.RiskLevel).Printf("  %s risk", r.RiskLevel)
	fmt.Printf("  weighted %.3f  direct %.3f  style %.3f  content %.3f\n", r.Weighted, r.Direct, r.Style, r.Content)
	for _, n := range r.Notes {
		muted.Printf("    - %s\n", n)
	}
}

func printMatches(matches []domain.Match) {
	if len(matches) == 0 {
		muted.Println("  No similar registered images")
		return
	}
	for i, m := range matches {
		fmt.Printf("  %d. %s by %s (%s)  similarity %.3f\n", i+1, m.Title, m.Owner, m.ImageID, m.Similarity)
		printResult(m.Analysis)
	}
}
