// Package main provides a CLI for linting item-bank documents before
// they ship with a study.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/StanNowak/Surveys/internal/platform/config"
	"github.com/StanNowak/Surveys/internal/services/study/bank"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <bank.json> [bank.json...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	failed := false
	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			config.Exitf("read %s: %v", path, err)
		}
		findings, summary, err := bank.Lint(data)
		if err != nil {
			config.Exitf("lint %s: %v", path, err)
		}
		fmt.Printf("%s: %d testlets, %d questions, %d diagnostics\n",
			path, summary.Testlets, summary.Questions, summary.Diagnostics)
		for _, finding := range findings {
			fmt.Printf("  %s\n", finding)
		}
		if len(findings) > 0 {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
	fmt.Println("OK")
}
