package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyellow/sedori-linebot-go/internal/config"
	"github.com/garyellow/sedori-linebot-go/internal/triage"
	"github.com/garyellow/sedori-linebot-go/internal/vision"
)

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <image>",
		Short: "Identify an item photo with the configured vision providers",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyzeCmd,
	}
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	image, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	visionCfg, err := config.LoadVision()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), visionCfg.Timeout)
	defer cancel()

	analyzer, err := vision.New(ctx, vision.Config{
		Providers:    visionCfg.Providers,
		OpenAIAPIKey: visionCfg.OpenAIAPIKey,
		GeminiAPIKey: visionCfg.GeminiAPIKey,
		OpenAIModel:  visionCfg.OpenAIModel,
		GeminiModel:  visionCfg.GeminiModel,
	})
	if err != nil {
		return err
	}
	defer func() { _ = analyzer.Close() }()

	analysis, err := analyzer.Analyze(ctx, image, imageMIME(args[0], image))
	if err != nil {
		return err
	}

	return printAnalysis(cmd, analysis)
}

// printAnalysis writes the analysis as JSON followed by the derived
// shipping estimate.
func printAnalysis(cmd *cobra.Command, analysis *vision.Analysis) error {
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(analysis); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "shipping_yen: %d\n", triage.EstimateShipping("", nil, analysis.Name))
	return err
}

func imageMIME(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	if ct := http.DetectContentType(data); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "image/jpeg"
}
