package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/FrenchMajesty/adaptive-classifier/adapters"
	"github.com/FrenchMajesty/adaptive-classifier/pkg/router"
	"github.com/FrenchMajesty/adaptive-classifier/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML routing config (default: built-in three-tier config)")
	text := flag.String("text", "", "text to classify")
	budget := flag.String("budget", string(types.BudgetStandard), "latency budget: critical, standard or relaxed")
	session := flag.String("session", "", "session id for experiment bucketing")
	smokeTest := flag.Bool("smoke-test", false, "route a handful of sample texts and print the metrics snapshot")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := router.DefaultConfig()
	if *configPath != "" {
		loaded, err := router.LoadConfigFile(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	}

	store, err := router.NewConfigStore(cfg)
	if err != nil {
		fatal(err)
	}

	classifiers, err := adapters.BuildClassifiers(cfg)
	if err != nil {
		fatal(err)
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Store:       store,
		Classifiers: classifiers,
	})
	if err != nil {
		fatal(err)
	}

	if *smokeTest {
		runSmokeTest(engine)
		return
	}

	if *text == "" {
		fmt.Fprintln(os.Stderr, "usage: adaptive-classifier -text \"...\" [-budget standard] [-session id] [-config routing.yaml]")
		os.Exit(2)
	}

	result, err := engine.Route(context.Background(), types.ClassificationRequest{
		Text:      *text,
		Budget:    types.LatencyBudget(*budget),
		SessionID: *session,
	})
	if err != nil {
		fatal(err)
	}
	printJSON(result)
}

// runSmokeTest routes a few representative texts through every budget to
// verify the wiring end to end, then dumps the aggregate metrics.
func runSmokeTest(engine *router.Engine) {
	samples := []struct {
		text   string
		budget types.LatencyBudget
	}{
		{"What is 2+2?", types.BudgetCritical},
		{"Thanks a lot, that fixed it!", types.BudgetCritical},
		{"My deploy pipeline fails with a cryptic TLS error on step 3", types.BudgetStandard},
		{"Can you compare the pricing of your two enterprise plans?", types.BudgetRelaxed},
	}

	ctx := context.Background()
	for _, s := range samples {
		result, err := engine.Route(ctx, types.ClassificationRequest{
			Text:      s.text,
			Budget:    s.budget,
			SessionID: "smoke-test",
		})
		if err != nil {
			fmt.Printf("%-14s %-60q ERROR %v\n", s.budget, s.text, err)
			continue
		}
		fmt.Printf("%-14s %-60q -> %s (%.2f via %s, chain %d)\n",
			s.budget, s.text, result.Label, result.Confidence, result.TierUsed, len(result.FallbackChain))
	}

	fmt.Println("\nmetrics snapshot:")
	printJSON(engine.Metrics().Snapshot())
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(out))
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
