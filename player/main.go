// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rigforge/rig-services/engine"
	playerapi "github.com/rigforge/rig-services/player/api"
	"github.com/rigforge/rig-services/player/service"
	"github.com/rigforge/rig-services/player/store"
	"github.com/rigforge/rig-services/shared/api"
	"github.com/rigforge/rig-services/shared/config"
	mongodbu "github.com/rigforge/rig-services/shared/mongodb"
	redisu "github.com/rigforge/rig-services/shared/redis"
	"github.com/rigforge/rig-services/shared/registry"
)

func main() {
	// --- 1. Load Configuration ---
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	cfg, err := config.LoadPlayerServiceConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// --- 2. Connect to MongoDB ---
	mongoClient, err := mongodbu.NewClient(cfg.MongoDBConnStr, cfg.MongoDBDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err = mongoClient.Disconnect(context.Background()); err != nil {
			log.Fatalf("Failed to disconnect from MongoDB: %v", err)
		}
		log.Println("Disconnected from MongoDB.")
	}()

	// --- 3. Connect to Redis ---
	redisClient, err := redisu.NewRedisClusterClient(cfg.RedisAddrs, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to connect to Redis Cluster: %v", err)
	}
	defer func() {
		if err = redisClient.Close(); err != nil {
			log.Fatalf("Error closing Redis client: %v", err)
		}
		log.Println("Redis Client closed.")
	}()

	// --- 4. Initialize Data Stores (passing MongoDB collections) ---
	playersCollection := mongoClient.Collection(cfg.MongoDBPlayersCollection)
	labsCollection := mongoClient.Collection(cfg.MongoDBLabsCollection)

	playerStore := store.NewPlayerStore(playersCollection)
	labStore := store.NewLabStore(labsCollection)

	// --- 5. Initialize Business Logic Services (passing stores) ---
	playerService := service.NewPlayerService(playerStore)
	labService := service.NewLabService(labStore, playerStore, engine.DefaultCatalog())

	// --- 6. Initialize API Handlers (passing business logic services) ---
	playerAPIHandlers := playerapi.NewPlayerAPIHandlers(playerService, labService)

	// --- 7. Initialize and Start Service Registrar ---
	registrar := registry.NewServiceRegistrar(redisClient, "player-service", &cfg.CommonConfig)
	go registrar.Start()
	defer registrar.Stop()

	// --- 8. Setup HTTP Server and Register Routes ---
	baseServer := api.NewBaseServer(cfg.ListenAddr, log.Default())
	playerAPIHandlers.RegisterRoutes(baseServer.Router)

	// --- 9. Start HTTP Server ---
	go func() {
		log.Printf("HTTP server starting on %s...", cfg.ListenAddr)
		if err := baseServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed to start: %v", err)
		}
	}()

	// --- 10. Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")

	// Create a context with a timeout for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := baseServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP server graceful shutdown failed: %v", err)
	}
	log.Println("Server gracefully stopped.")
}
