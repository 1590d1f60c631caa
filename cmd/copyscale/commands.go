package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timmy/copyscale/internal/domain"
)

func runCompare(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.Analysis.Compare(cmd.Context(), args[0], args[1])
	if jsonOutput {
		return printJSON(result)
	}
	printResult(result)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.Store.Register(cmd.Context(), args[0], args[0], title, owner, description)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("could not extract features from " + args[0])
	}
	id := domain.FingerprintID(owner, title, args[0])
	if jsonOutput {
		return printJSON(map[string]string{"id": id})
	}
	success.Printf("Registered %s\n", id)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.Remove(cmd.Context(), args[0]); err != nil {
		return err
	}
	success.Printf("Removed %s\n", args[0])
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	var records []domain.FingerprintRecord
	for rec := range a.Store.List() {
		records = append(records, rec)
	}
	if jsonOutput {
		return printJSON(records)
	}
	if len(records) == 0 {
		muted.Println("No fingerprints registered")
		return nil
	}
	for _, rec := range records {
		heading.Printf("%s\n", rec.ID)
		if url := a.Store.OriginalURL(rec); url != "" {
			muted.Printf("  %s\n", url)
		}
		fmt.Printf("  %s by %s\n", rec.Title, rec.Owner)
		if rec.Description != "" {
			muted.Printf("  %s\n", rec.Description)
		}
	}
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	stats := a.Store.Stats()
	if jsonOutput {
		return printJSON(stats)
	}
	heading.Printf("Total images: %d\n", stats.TotalImages)
	fmt.Printf("Owners: %d\n", len(stats.Owners))
	for _, o := range stats.Owners {
		fmt.Printf("  %s\n", o)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	k := topK
	if k == 0 {
		k = a.Config.Search.TopK
	}
	matches := a.Search.Search(cmd.Context(), args[0], k)
	if jsonOutput {
		return printJSON(matches)
	}
	printMatches(matches)
	return nil
}

func runVideo(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.Video.MatchAgainstReference(cmd.Context(), args[0], args[1])
	if jsonOutput {
		return printJSON(report)
	}
	for _, f := range report.Frames {
		heading.Printf("Frame %d at %.1fs\n", f.Frame.FrameNumber, f.Frame.TimeSeconds)
		printResult(f.Analysis)
	}
	fmt.Println()
	heading.Printf("Frames: %d  ", report.Summary.TotalFrames)
	riskColor(domain.RiskHigh).Printf("HIGH: %d  ", report.Summary.HighRiskFrames)
	riskColor(domain.RiskMedium).Printf("MEDIUM: %d\n", report.Summary.MediumRiskFrames)
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.Video.MatchAgainstStore(cmd.Context(), args[0], perFrameK)
	if jsonOutput {
		return printJSON(report)
	}
	for _, f := range report.Frames {
		heading.Printf("Frame %d at %.1fs\n", f.Frame.FrameNumber, f.Frame.TimeSeconds)
		printMatches(f.TopMatches)
	}
	fmt.Println()
	heading.Printf("Frames: %d  ", report.Summary.TotalFrames)
	riskColor(domain.RiskHigh).Printf("HIGH: %d  ", report.Summary.HighRiskFrames)
	fmt.Printf("Matches: %d\n", report.Summary.TotalMatches)
	return nil
}

func runClear(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	n := a.Store.Len()
	if err := a.Store.Clear(cmd.Context()); err != nil {
		return err
	}
	success.Printf("Cleared %d fingerprints\n", n)
	return nil
}

func runVerify(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	missing, err := a.Store.Verify(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(map[string][]string{"missing": missing})
	}
	if len(missing) == 0 {
		success.Printf("All %d originals present\n", a.Store.Len())
		return nil
	}
	for _, id := range missing {
		riskColor(domain.RiskHigh).Printf("missing  ")
		fmt.Println(id)
	}
	return fmt.Errorf("%d originals missing", len(missing))
}
