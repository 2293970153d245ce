package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/renovatehq/sowgen/internal/agents"
	"github.com/renovatehq/sowgen/internal/api"
	"github.com/renovatehq/sowgen/internal/config"
	"github.com/renovatehq/sowgen/internal/costing"
	"github.com/renovatehq/sowgen/internal/jobs"
	"github.com/renovatehq/sowgen/internal/orchestrator"
	"github.com/renovatehq/sowgen/internal/review"
	"github.com/renovatehq/sowgen/pkg/models"
)

// agentCatalogFile is an optional YAML catalog merged over the built-in
// agents, settable via --agents on commands that build a manager.
var agentCatalogFile string

// buildManager wires the full pipeline from configuration: API client,
// agent registry, orchestrator, classifier, reviewer, and job store.
func buildManager(cfg *config.Config) (*jobs.Manager, error) {
	apiKey := cfg.Anthropic.APIKey
	if !cfg.Anthropic.UseBedrock {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w (set ANTHROPIC_API_KEY or anthropic.api_key, or enable Bedrock)", err)
		}
		apiKey = key
	}

	client, err := api.NewClient(api.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("create API client: %w", err)
	}

	catalog := agents.DefaultCatalog()
	if agentCatalogFile != "" {
		catalog, err = agents.LoadCatalog(agentCatalogFile)
		if err != nil {
			return nil, fmt.Errorf("load agent catalog: %w", err)
		}
	}
	registry, err := agents.NewRegistry(catalog)
	if err != nil {
		return nil, fmt.Errorf("build agent registry: %w", err)
	}
	// A merged catalog must still serve the custom fallback type.
	if !registry.Has(models.ProjectTypeCustom) {
		return nil, fmt.Errorf("agent catalog %s registers %d agents but no custom orchestrator", agentCatalogFile, registry.Count())
	}

	rates := costing.DefaultDayRates()
	if cfg.Rates.File != "" {
		rates, err = costing.LoadDayRates(cfg.Rates.File)
		if err != nil {
			return nil, fmt.Errorf("load day rates: %w", err)
		}
	}

	var store jobs.Store
	if cfg.Jobs.DBPath != "" {
		store, err = jobs.OpenSQLite(cfg.Jobs.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open job store: %w", err)
		}
	} else {
		store = jobs.NewMemoryStore()
	}

	invoker := agents.NewInvoker(registry, client, agents.InvokerConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff:     cfg.Retry.Backoff,
	})
	orch := orchestrator.New(registry, invoker)
	reviewer := review.NewReviewer(client)

	return jobs.NewManager(store, registry, orch, costing.NewClassifier(rates), reviewer, nil, jobs.ManagerConfig{
		BaseEstimate:  cfg.Jobs.BaseEstimate,
		PerSpecialist: cfg.Jobs.PerSpecialist,
		JobTimeout:    cfg.Jobs.Timeout,
	}), nil
}
