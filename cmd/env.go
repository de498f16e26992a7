package main

import (
	"context"
	"os"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dashboard-engine/internal/appconfig"
	"github.com/sells-group/dashboard-engine/internal/dashboard"
	"github.com/sells-group/dashboard-engine/internal/record"
	"github.com/sells-group/dashboard-engine/internal/scope"
	"github.com/sells-group/dashboard-engine/pkg/crm"
)

// env holds the wired runtime: CRM client, config store, and aggregator.
type env struct {
	CRM        crm.Client
	Store      *appconfig.Store
	Aggregator *dashboard.Aggregator

	cache *scope.TTLCache
}

func initEnv(ctx context.Context) (*env, error) {
	client, err := initSalesforce()
	if err != nil {
		return nil, err
	}

	store, err := initConfigStore(ctx)
	if err != nil {
		return nil, err
	}

	cache := scope.NewTTLCache(30*time.Minute, 5*time.Minute)
	resolver := scope.NewResolver(crm.NewRoleHierarchy(client), scope.WithCache(cache))

	return &env{
		CRM:        client,
		Store:      store,
		Aggregator: dashboard.NewAggregator(resolver),
		cache:      cache,
	}, nil
}

func (e *env) Close() {
	if e.cache != nil {
		e.cache.Stop()
	}
}

func initSalesforce() (crm.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (DASHBOARD_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return crm.NewClient(sf, crm.WithRateLimit(cfg.Salesforce.RateLimit)), nil
}

// initConfigStore opens the snapshot backend named by store.driver and seeds
// it with the file at dashboard.seed_config_path, or the shipped defaults.
func initConfigStore(ctx context.Context) (*appconfig.Store, error) {
	seed, err := loadSeedConfig(cfg.Dashboard.SeedConfigPath)
	if err != nil {
		return nil, err
	}

	var backend appconfig.Backend
	switch cfg.Store.Driver {
	case "postgres":
		backend, err = appconfig.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite":
		backend, err = appconfig.NewSQLite(cfg.Store.Path)
	case "file":
		backend = appconfig.NewFileBackend(cfg.Store.Path)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	return appconfig.NewStore(ctx, seed, appconfig.WithBackend(backend))
}

func fetchForObject(ctx context.Context, client crm.Client, objectType string, limit int) ([]record.Record, error) {
	if objectType == appconfig.ObjectOpportunity {
		return crm.FetchOpportunities(ctx, client, limit)
	}
	return crm.FetchAccounts(ctx, client, limit)
}

func loadSeedConfig(path string) (appconfig.AppConfig, error) {
	if path == "" {
		return appconfig.Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return appconfig.AppConfig{}, eris.Wrap(err, "read seed config")
	}

	var seed appconfig.AppConfig
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return appconfig.AppConfig{}, eris.Wrap(err, "parse seed config")
	}
	return seed, nil
}
