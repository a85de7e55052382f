package main

import (
	"flag"
	"log"
	"os"

	"main/internal/mdg"
	"main/internal/ops"
	"main/internal/series"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config (registry)")
	outPath := flag.String("out", "ticks.csv", "Output CSV path")
	count := flag.Int("count", 10000, "Number of ticks to generate")
	startTs := flag.Int64("start-ts", 1_700_000_000_000_000_000, "First tick timestamp in ns")
	stepNs := flag.Int64("step-ns", 1_000_000, "Spacing between ticks in ns")
	basePrice := flag.Int64("base-price", 100_000, "Walk start price in scaled units")
	maxStep := flag.Int64("max-step", 25, "Max walk increment in scaled units")
	baseSize := flag.Int64("base-size", 100, "Tick size in scaled units")
	spread := flag.Int64("spread", 5, "Half quote spread in scaled units")
	quoteEvery := flag.Int("quote-every", 4, "Quotes interleaved after this many trades (0=trades only)")
	seed := flag.Int64("seed", 42, "Random walk seed")
	flag.Parse()

	if *configPath == "" {
		log.Fatalf("usage: mdg -config <file> -out <file>")
	}

	reg, err := ops.LoadRegistry(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	gen, err := mdg.NewGenerator(reg, mdg.Config{
		StartTs:    *startTs,
		StepNs:     *stepNs,
		BasePrice:  *basePrice,
		MaxStep:    *maxStep,
		BaseSize:   *baseSize,
		Spread:     *spread,
		QuoteEvery: *quoteEvery,
		Seed:       *seed,
	})
	if err != nil {
		log.Fatalf("generator init failed: %v", err)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("create output failed: %v", err)
	}
	defer f.Close()

	w, err := series.NewWriter(f, reg)
	if err != nil {
		log.Fatalf("writer init failed: %v", err)
	}
	for i := 0; i < *count; i++ {
		if err := w.Write(gen.Next()); err != nil {
			log.Fatalf("write failed: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		log.Fatalf("flush failed: %v", err)
	}
	log.Printf("wrote %d ticks to %s", *count, *outPath)
}
