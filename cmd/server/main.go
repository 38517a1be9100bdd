package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bot-arena/internal/api"
	"bot-arena/internal/config"
	"bot-arena/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	} else {
		log.Println("✅ Loaded environment from .env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  BOT ARENA - FIGHT SERVER")
	log.Println("🎮 ================================")

	appConfig := config.Load()
	log.Printf("🎮 Ruleset: %d TPS, first to %d rounds, %ds round timer",
		appConfig.Sim.TickRate, appConfig.Sim.RoundsToWin, appConfig.Sim.RoundTime)
	log.Printf("🛡️ Limits: %d conns/IP, %.0f msgs/s per conn",
		appConfig.Server.Limits.ConnectionsPerIP, appConfig.Server.Limits.MessagesPerSecond)

	// Debug server (pprof + metrics, localhost only)
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	bots := store.NewMemoryBotStore()

	// Match history prefers SQLite; fall back to memory so a bad disk
	// never keeps the arena down.
	var matches store.MatchStore
	if path := appConfig.Store.MatchDBPath; path != "" {
		sqlStore, err := store.OpenSQLiteMatchStore(path)
		if err != nil {
			log.Printf("⚠️ SQLite store unavailable (%v), match history is in-memory only", err)
			matches = store.NewMemoryMatchStore()
		} else {
			defer sqlStore.Close()
			log.Printf("💾 Match history: %s", path)
			matches = sqlStore
		}
	} else {
		log.Println("💾 Match history: in-memory")
		matches = store.NewMemoryMatchStore()
	}

	server := api.NewServer(appConfig, bots, matches)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	if err := server.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("👋 Goodbye!")
}
