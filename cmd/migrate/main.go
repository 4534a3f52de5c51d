package main

import (
	"fmt"
	"os"

	"github.com/quocanhngo/lostfound/internal/config"
	"github.com/quocanhngo/lostfound/migrations"
	"github.com/quocanhngo/lostfound/pkg/logger"
	"go.uber.org/zap"
)

// Usage: migrate [up|down]
func main() {
	cfg := config.Load()
	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	defer log.Sync()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "up":
		err = migrations.Run(cfg.DB.URL(), log)
	case "down":
		err = migrations.Rollback(cfg.DB.URL(), log)
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [up|down]\n", os.Args[0])
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("❌ Migration failed", zap.String("command", cmd), zap.Error(err))
	}
}
