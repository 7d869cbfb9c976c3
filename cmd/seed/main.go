package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"finance-billing/internal/config"
	"finance-billing/internal/domain"
	"finance-billing/internal/domain/model"
	pg "finance-billing/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	force := flag.Bool("force", false, "overwrite existing pricing rows")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	repo := pg.NewPricingRepo(pool)

	// Sample price table: amounts in minor units.
	seed := []struct {
		Plan     model.Plan
		Currency model.Currency
		Amount   int64
		Days     int
	}{
		{model.PlanProMonthly, model.CurrencyINR, 49_900, 30},
		{model.PlanProMonthly, model.CurrencyUSD, 999, 30},
		{model.PlanProMonthly, model.CurrencyEUR, 899, 30},
		{model.PlanProYearly, model.CurrencyINR, 499_900, 365},
		{model.PlanProYearly, model.CurrencyUSD, 9_999, 365},
		{model.PlanProYearly, model.CurrencyEUR, 8_999, 365},
	}

	for _, s := range seed {
		existing, err := repo.FindByPlanAndCurrency(ctx, nil, s.Plan, s.Currency)
		switch {
		case err == nil && !*force:
			fmt.Printf("exists: %s/%s %s (%d days, active=%t)\n", existing.Plan, existing.Currency,
				model.FormatAmount(existing.Amount, existing.Currency), existing.DurationDays, existing.Active)
			continue
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			log.Fatalf("lookup %s/%s: %v", s.Plan, s.Currency, err)
		}

		p, err := model.NewPricing(s.Plan, s.Currency, s.Amount, s.Days)
		if err != nil {
			log.Fatalf("pricing %s/%s: %v", s.Plan, s.Currency, err)
		}
		if err := repo.Save(ctx, nil, p); err != nil {
			log.Fatalf("save %s/%s: %v", s.Plan, s.Currency, err)
		}
		fmt.Printf("seeded: %s/%s %s (%d days)\n", p.Plan, p.Currency, model.FormatAmount(p.Amount, p.Currency), p.DurationDays)
	}

	fmt.Println("✅ Seeding complete.")
}
