package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gunvolt24/yote/pkg/validate"
)

// CLI-приложение для проверки товаров перед импортом.
// Валидные записи уходят в stdout (JSONL), итог и проблемы в stderr.
func main() {
	inputPath := flag.String("in", "", "path to input (.json, .jsonl, .ndjson). If empty, reads JSONL from stdin.")
	formatStr := flag.String("format", "auto", "input format: auto|json|jsonl")
	verbose := flag.Bool("v", false, "print every invalid record")
	flag.Parse()

	format, err := validate.ParseFormat(*formatStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	productValidator := validate.NewProductValidator()

	var report validate.Report
	if *inputPath == "" {
		report, err = validate.ValidateReader(ctx, productValidator, os.Stdin, format, os.Stdout)
	} else {
		report, err = validate.ValidateFile(ctx, productValidator, *inputPath, format, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "validation: %v (%s)\n", err, report)
		os.Exit(1)
	}

	if *verbose {
		for _, p := range report.Problems {
			fmt.Fprintln(os.Stderr, p)
		}
	}
	if !report.OK() {
		fmt.Fprintf(os.Stderr, "validation failed (%s)\n", report)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "validation ok (%s)\n", report)
}
