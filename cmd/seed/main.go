package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4"

	"vpn-subscription-bot/internal/config"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/repository"
	pg "vpn-subscription-bot/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	codes := flag.Int("promocodes", 5, "number of promocodes to create")
	days := flag.Int("days", 30, "duration granted by each promocode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	servers := []*model.Server{
		{Name: "fi-hel-1", Host: "hel1.vpn.example.com", MaxClients: 200, Online: true},
		{Name: "de-fra-1", Host: "fra1.vpn.example.com", MaxClients: 200, Online: true},
		{Name: "nl-ams-1", Host: "ams1.vpn.example.com", MaxClients: 100, Online: true},
	}
	serverRepo := pg.NewServerRepo(pool)
	promoRepo := pg.NewPromocodeRepo(pool)

	var created []*model.Promocode
	err = pg.NewTxManager(pool).WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, s := range servers {
			if err := serverRepo.Save(ctx, tx, s); err != nil {
				return fmt.Errorf("save server %q: %w", s.Name, err)
			}
		}
		for i := 0; i < *codes; i++ {
			p, err := promoRepo.Create(ctx, tx, *days)
			if err != nil {
				return fmt.Errorf("create promocode: %w", err)
			}
			created = append(created, p)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	for _, s := range servers {
		fmt.Printf("server: %s (id=%d, host=%s, max_clients=%d)\n", s.Name, s.ID, s.Host, s.MaxClients)
	}
	for _, p := range created {
		fmt.Printf("promocode: %s (%d days)\n", p.Code, p.DurationDays)
	}
	fmt.Println("✅ Seeding complete.")
}
