package database_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/JaimeStill/glimpse/pkg/database"
)

func TestPingBeforeStart(t *testing.T) {
	cfg := &database.Config{
		Host:            "localhost",
		Port:            5432,
		Name:            "glimpse",
		User:            "glimpse",
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    1,
		ConnMaxLifetime: "15m",
		ConnTimeout:     "1s",
	}

	db, err := database.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer db.Connection().Close()

	if err := db.Ping(context.Background()); !errors.Is(err, database.ErrNotReady) {
		t.Errorf("Ping() = %v, want ErrNotReady", err)
	}
}
