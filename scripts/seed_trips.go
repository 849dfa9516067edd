package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"tripplanner/internal/config"
	"tripplanner/internal/domain"
	"tripplanner/internal/models"
	"tripplanner/internal/store"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type TripsConfig struct {
	Trips []models.Trip `yaml:"trips"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		tripsPath = flag.String("trips", "configs/trips.yaml", "path to trips.yaml")
		baseURL   = flag.String("store", "http://localhost:3000", "record store base URL")
	)
	flag.Parse()

	data, err := os.ReadFile(*tripsPath)
	if err != nil {
		return fmt.Errorf("read trips: %w", err)
	}
	var cfg TripsConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse trips: %w", err)
	}
	if len(cfg.Trips) == 0 {
		return fmt.Errorf("no trips in yaml")
	}

	st := store.NewHTTPStore(config.StoreConfig{BaseURL: *baseURL, TimeoutSeconds: 10}, &logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created := 0
	updated := 0
	for _, trip := range cfg.Trips {
		if trip.Name == "" {
			continue
		}
		if trip.ID != 0 {
			var existing []models.Trip
			if err = st.Fetch(ctx, models.CollectionTrips, domain.Filter{"id": trip.ID.String()}, &existing); err != nil {
				return fmt.Errorf("get %s: %w", trip.Name, err)
			}
			if len(existing) > 0 {
				if err = st.Update(ctx, models.CollectionTrips, trip.ID, trip, nil); err != nil {
					return fmt.Errorf("update %s: %w", trip.Name, err)
				}
				updated++
				continue
			}
		}
		if err = st.Create(ctx, models.CollectionTrips, trip, nil); err != nil {
			return fmt.Errorf("create %s: %w", trip.Name, err)
		}
		created++
	}

	fmt.Printf("done: created=%d updated=%d\n", created, updated)
	return nil
}
