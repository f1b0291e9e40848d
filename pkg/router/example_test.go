package router_test

import (
	"context"
	"fmt"
	"log"

	"github.com/FrenchMajesty/adaptive-classifier/pkg/router"
	"github.com/FrenchMajesty/adaptive-classifier/pkg/testutil"
	"github.com/FrenchMajesty/adaptive-classifier/pkg/types"
)

// Example shows basic usage of the routing engine with the stock
// three-tier configuration.
func Example_basic() {
	store, err := router.NewConfigStore(router.DefaultConfig())
	if err != nil {
		log.Fatal(err)
	}

	// Real deployments plug in the adapters package here.
	engine, err := router.NewEngine(router.EngineConfig{
		Store: store,
		Classifiers: map[string]router.TierClassifier{
			"rules":      &testutil.MockTierClassifier{},
			"zero_shot":  &testutil.MockTierClassifier{},
			"fine_tuned": &testutil.MockTierClassifier{},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	result, err := engine.Route(context.Background(), types.ClassificationRequest{
		Text:      "Thanks for the help!",
		Budget:    types.BudgetCritical,
		SessionID: "session-42",
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Label: %s\n", result.Label)
	fmt.Printf("Tier: %s\n", result.TierUsed)
	fmt.Printf("Group: %s\n", result.ExperimentGroup)
}

// Example shows running an A/B experiment on thresholds and reading the
// per-group statistics afterwards.
func Example_experiment() {
	cfg := router.DefaultConfig()
	cfg.ExperimentsEnabled = true
	cfg.Groups = []router.ExperimentGroup{
		{
			Name:              "lenient_rules",
			TrafficPercentage: 20,
			// Accept rules answers at 0.6 for this arm instead of 0.85.
			ThresholdOverrides: map[string]float64{"rules": 0.60},
		},
	}

	store, err := router.NewConfigStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	engine, err := router.NewEngine(router.EngineConfig{
		Store: store,
		Classifiers: map[string]router.TierClassifier{
			"rules":      &testutil.MockTierClassifier{},
			"zero_shot":  &testutil.MockTierClassifier{},
			"fine_tuned": &testutil.MockTierClassifier{},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	for _, session := range []string{"user-1", "user-2", "user-3"} {
		if _, err := engine.Route(context.Background(), types.ClassificationRequest{
			Text:      "Is my invoice overdue?",
			SessionID: session,
		}); err != nil {
			log.Fatal(err)
		}
	}

	snapshot := engine.Metrics().Snapshot()
	for name, stats := range snapshot.PerGroup {
		fmt.Printf("%s: %d requests\n", name, stats.Count)
	}
}
