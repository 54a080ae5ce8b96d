// Command advisor serves the apartment advisor API and offers one-shot
// budget, seeding and recommendation commands.
//
// Usage:
//
//	advisor serve
//	advisor budget --purpose residence --salary 8000 --cash 30000
//	advisor seed --file data/apartments.json
//	advisor recommend --purpose residence --salary 8000 --cash 30000 --work 강남역
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/denisok6893-rgb/apartment-advisor/internal/advisor"
	"github.com/denisok6893-rgb/apartment-advisor/internal/breaker"
	"github.com/denisok6893-rgb/apartment-advisor/internal/budget"
	"github.com/denisok6893-rgb/apartment-advisor/internal/config"
	"github.com/denisok6893-rgb/apartment-advisor/internal/domain"
	httpapi "github.com/denisok6893-rgb/apartment-advisor/internal/http"
	"github.com/denisok6893-rgb/apartment-advisor/internal/llm"
	"github.com/denisok6893-rgb/apartment-advisor/internal/logging"
	"github.com/denisok6893-rgb/apartment-advisor/internal/matching"
	"github.com/denisok6893-rgb/apartment-advisor/internal/storage"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "advisor",
		Usage:   "Apartment purchase advisor: budget eligibility and recommendation scoring",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config.yaml",
				EnvVars: []string{config.ConfigPathEnvVar},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			budgetCommand(),
			seedCommand(),
			recommendCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func bootstrap(c *cli.Context) (*app, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logging.Init(cfg.Logging)}, nil
}

func (a *app) openStore(ctx context.Context) (*storage.Store, error) {
	store, err := storage.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN, a.logger)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func (a *app) engine() *matching.Engine {
	policy, err := matching.LoadPolicyFromFile(a.cfg.Scoring.PolicyPath)
	if err != nil {
		a.logger.Warn().Err(err).Str("path", a.cfg.Scoring.PolicyPath).Msg("using default scoring policy")
	}
	return matching.NewEngine(policy, a.logger)
}

func (a *app) service(ctx context.Context, store *storage.Store) (*advisor.Service, error) {
	cfg := a.cfg
	deps := advisor.Deps{
		Store:      store,
		Calculator: budget.NewCalculator(cfg.Budget),
		Engine:     a.engine(),
		Source: storage.NewCandidateSource(store,
			breaker.New("candidate_source", cfg.Breaker, a.logger), cfg.Recommend.SourceTimeout),
		Extractor: llm.RuleExtractor{},
		Responder: llm.TemplateResponder{},
	}

	if cfg.LLM.Enabled {
		chatModel, err := llm.NewArkModel(ctx, cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			return nil, fmt.Errorf("init chat model: %w", err)
		}
		assistant := llm.NewAssistant(chatModel, breaker.New("llm", cfg.Breaker, a.logger), llm.Options{
			Temperature: float32(cfg.LLM.Temperature),
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
		}, a.logger)
		deps.Extractor = assistant
		deps.Responder = assistant
		a.logger.Info().Str("model", cfg.LLM.Model).Msg("chat model enabled")
	} else {
		a.logger.Info().Msg("chat model disabled, using rule-based extraction and template replies")
	}

	return advisor.NewService(deps, advisor.Options{
		TopN:       cfg.Recommend.TopN,
		FetchLimit: cfg.Recommend.FetchLimit,
		History:    cfg.LLM.History,
	}, a.logger), nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Action: func(c *cli.Context) error {
			a, err := bootstrap(c)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if n, err := store.SeedIfEmpty(ctx, a.cfg.Database.SeedPath); err != nil {
				a.logger.Warn().Err(err).Str("path", a.cfg.Database.SeedPath).Msg("seed skipped")
			} else if n > 0 {
				a.logger.Info().Int("apartments", n).Msg("seeded empty database")
			}

			svc, err := a.service(ctx, store)
			if err != nil {
				return err
			}
			srv := httpapi.NewServer(svc, &httpapi.StoreApartmentsRepo{Store: store}, store, httpapi.Options{
				RateLimit:   a.cfg.Server.RateLimit,
				RateWindow:  a.cfg.Server.RateWindow,
				CORSOrigins: a.cfg.Server.CORSOrigins,
			}, a.logger)

			httpServer := &http.Server{
				Addr:         a.cfg.Server.Address,
				Handler:      srv.Routes(),
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info().Str("address", httpServer.Addr).Msg("API listening")
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
			}

			a.logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
}

func profileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "purpose", Value: string(domain.PurposeResidence), Usage: "residence or gap_investment"},
		&cli.Float64Flag{Name: "salary", Usage: "Annual salary (만원)", Required: true},
		&cli.Float64Flag{Name: "cash", Usage: "Available cash (만원)", Required: true},
		&cli.Float64Flag{Name: "debt", Usage: "Annual debt service (만원)"},
	}
}

func financialProfile(c *cli.Context) (domain.FinancialProfile, error) {
	purpose := domain.Purpose(c.String("purpose"))
	if !purpose.Valid() {
		return domain.FinancialProfile{}, domain.Invalid("purpose must be residence or gap_investment")
	}
	return domain.FinancialProfile{
		Purpose:           purpose,
		AnnualSalary:      c.Float64("salary"),
		AvailableCash:     c.Float64("cash"),
		AnnualDebtService: c.Float64("debt"),
	}, nil
}

func budgetCommand() *cli.Command {
	return &cli.Command{
		Name:  "budget",
		Usage: "Compute the affordability envelope for a profile",
		Flags: profileFlags(),
		Action: func(c *cli.Context) error {
			a, err := bootstrap(c)
			if err != nil {
				return err
			}
			fp, err := financialProfile(c)
			if err != nil {
				return err
			}
			svc := advisor.NewService(advisor.Deps{Calculator: budget.NewCalculator(a.cfg.Budget)},
				advisor.Options{TopN: a.cfg.Recommend.TopN}, a.logger)
			return printJSON(svc.Budget(fp))
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load apartments from a JSON file into the database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Apartments JSON file (defaults to database.seed_path)"},
		},
		Action: func(c *cli.Context) error {
			a, err := bootstrap(c)
			if err != nil {
				return err
			}
			path := c.String("file")
			if path == "" {
				path = a.cfg.Database.SeedPath
			}
			items, err := storage.LoadApartmentsFromFile(path)
			if err != nil {
				return err
			}
			store, err := a.openStore(c.Context)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.UpsertApartments(c.Context, items)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "🏠 Loaded %d apartments from %s\n", n, path)
			return nil
		},
	}
}

func recommendCommand() *cli.Command {
	flags := append(profileFlags(),
		&cli.StringFlag{Name: "work", Usage: "Work location, e.g. 강남역"},
		&cli.StringFlag{Name: "area", Usage: "Preferred area substring, e.g. 송파구"},
		&cli.IntFlag{Name: "top", Value: 0, Usage: "Number of results (defaults to recommend.top_n)"},
	)
	return &cli.Command{
		Name:  "recommend",
		Usage: "Rank apartments in the database for a profile",
		Flags: flags,
		Action: func(c *cli.Context) error {
			a, err := bootstrap(c)
			if err != nil {
				return err
			}
			fp, err := financialProfile(c)
			if err != nil {
				return err
			}
			store, err := a.openStore(c.Context)
			if err != nil {
				return err
			}
			defer store.Close()

			svc, err := a.service(c.Context, store)
			if err != nil {
				return err
			}
			res, err := svc.Match(c.Context, domain.ClientProfile{
				FinancialProfile: fp,
				WorkLocation:     c.String("work"),
				PreferredArea:    c.String("area"),
			}, c.Int("top"))
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
