package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/m3rciful/flotabot/core/logger"
)

// SeedDemoTrucks loads the demo fleet used for manual testing. It is a no-op
// when any trucks already exist.
func SeedDemoTrucks(ctx context.Context, s *Store) error {
	n, err := s.Trucks.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.SEED.Debug("trucks already present",
			slog.String("event", "skip"),
			slog.Int("count", n),
		)
		return nil
	}

	now := time.Now()
	demo := []Truck{
		{
			LicensePlate:    "123ABC",
			DriverName:      "Juan Pérez",
			Model:           "Scania R500",
			Year:            2022,
			Status:          "active",
			LastMaintenance: sql.NullTime{Time: now.AddDate(0, 0, -30), Valid: true},
			AdditionalInfo:  sql.NullString{String: "Camión principal para rutas largas", Valid: true},
		},
		{
			LicensePlate:    "789XYZ",
			DriverName:      "María García",
			Model:           "Volvo FH16",
			Year:            2021,
			Status:          "maintenance",
			LastMaintenance: sql.NullTime{Time: now.AddDate(0, 0, -15), Valid: true},
			AdditionalInfo:  sql.NullString{String: "Programado para mantenimiento el próximo mes", Valid: true},
		},
		{
			LicensePlate:    "456DEF",
			DriverName:      "Carlos Rodríguez",
			Model:           "Mercedes-Benz Actros",
			Year:            2023,
			Status:          "active",
			LastMaintenance: sql.NullTime{Time: now.AddDate(0, 0, -60), Valid: true},
			AdditionalInfo:  sql.NullString{String: "Camión para distribución urbana", Valid: true},
		},
		{
			LicensePlate:    "923XIP",
			DriverName:      "Jorge Arze",
			Model:           "Mercedes-Benz Actros",
			Year:            2023,
			Status:          "active",
			LastMaintenance: sql.NullTime{Time: now.AddDate(0, 0, -60), Valid: true},
			AdditionalInfo:  sql.NullString{String: "Camión para distribución urbana", Valid: true},
		},
	}

	for i := range demo {
		if err := s.Trucks.Insert(ctx, &demo[i]); err != nil {
			return err
		}
	}

	logger.SEED.Info("demo trucks seeded",
		slog.String("event", "summary"),
		slog.Int("count", len(demo)),
	)
	return nil
}
