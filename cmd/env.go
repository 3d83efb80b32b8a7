package main

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"

	"github.com/sells-group/account-advisor/internal/advisor"
	"github.com/sells-group/account-advisor/internal/store"
	"github.com/sells-group/account-advisor/pkg/datascout"
	"github.com/sells-group/account-advisor/pkg/memoryanalyst"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "advisor.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initDataScout() (datascout.Client, error) {
	if cfg.DataScout.ClientID == "" {
		return nil, eris.New("datascout client ID is required (ADVISOR_DATASCOUT_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.DataScout.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read datascout JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.DataScout.LoginURL,
		Username:       cfg.DataScout.Username,
		ConsumerKey:    cfg.DataScout.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init datascout")
	}

	return datascout.NewClient(sf, datascout.WithRateLimit(cfg.DataScout.RateRPS)), nil
}

func initMemoryAnalyst() memoryanalyst.Client {
	opts := []memoryanalyst.Option{
		memoryanalyst.WithRateLimit(cfg.MemoryAnalyst.RateRPS),
	}
	if cfg.MemoryAnalyst.BaseURL != "" {
		opts = append(opts, memoryanalyst.WithBaseURL(cfg.MemoryAnalyst.BaseURL))
	}
	return memoryanalyst.NewClient(cfg.MemoryAnalyst.Key, opts...)
}

func loadPlaybook() (*advisor.Playbook, error) {
	if cfg.PlaybookPath == "" {
		return advisor.DefaultPlaybook(), nil
	}
	return advisor.LoadPlaybook(cfg.PlaybookPath)
}
