package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joelkehle/vehicle-insights/internal/report"
	"github.com/joelkehle/vehicle-insights/internal/vehicle"
)

func main() {
	inputPath := flag.String("input", "", "Path to saved vehicle profile JSON")
	outputPath := flag.String("output", "", "Path to write markdown report (defaults to stdout)")
	pdfPath := flag.String("pdf", "", "Optional path to write a PDF rendering (requires Chromium)")
	stylePath := flag.String("style", "", "Optional stylesheet override for the PDF")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("missing required -input")
	}

	in, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	var profile vehicle.Profile
	if err := json.Unmarshal(in, &profile); err != nil {
		log.Fatalf("decode input JSON: %v", err)
	}

	if err := writeMarkdown(*outputPath, report.BuildMarkdown(profile)); err != nil {
		log.Fatalf("write markdown: %v", err)
	}

	if *pdfPath != "" {
		renderer := report.NewChromiumPDFRenderer(*stylePath)
		pdf, err := renderer.Render(context.Background(), profile)
		if err != nil {
			log.Fatalf("render pdf: %v", err)
		}
		if err := os.WriteFile(*pdfPath, pdf, 0o644); err != nil {
			log.Fatalf("write pdf: %v", err)
		}
	}
}

func writeMarkdown(outputPath, markdown string) error {
	if outputPath == "" {
		_, err := fmt.Print(markdown)
		return err
	}
	return os.WriteFile(outputPath, []byte(markdown), 0o644)
}
