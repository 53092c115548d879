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
	machineapi "github.com/rigforge/rig-services/machine/api"
	"github.com/rigforge/rig-services/machine/service"
	"github.com/rigforge/rig-services/machine/store"
	"github.com/rigforge/rig-services/machine/sweeper"
	"github.com/rigforge/rig-services/shared/api"
	"github.com/rigforge/rig-services/shared/config"
	"github.com/rigforge/rig-services/shared/mongodb"
	redisu "github.com/rigforge/rig-services/shared/redis"
	"github.com/rigforge/rig-services/shared/registry"
	playerserviceclient "github.com/rigforge/rig-services/shared/service"
)

func main() {
	// --- 1. Load Configuration ---
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	cfg, err := config.LoadMachineServiceConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Configuration loaded for Machine Service. Listening on: %s", cfg.ListenAddr)

	// --- 2. Connect to Redis Cluster ---
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
	log.Println("Connected to Redis Cluster.")

	// --- 3. Connect to MongoDB ---
	mongoClient, err := mongodb.NewClient(cfg.MongoDBConnStr, cfg.MongoDBDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Printf("Error disconnecting MongoDB client: %v", err)
		}
	}()

	// --- 4. Initialize Data Stores ---
	machineStore := store.NewMachineStore(mongoClient.Collection(cfg.MongoDBMachinesCollection))
	sessionsStore := store.NewRunningSessionsStore(redisClient, cfg.SessionKeyGrace)

	playerClient := playerserviceclient.NewPlayerClient(cfg.PlayerServiceURL)

	// --- 5. Initialize Business Logic Service (passing stores) ---
	machineService := service.NewMachineService(
		machineStore,
		sessionsStore,
		playerClient,
		engine.DefaultCatalog(),
		engine.Tuning{
			ElectricBillPct:  cfg.ElectricBillPct,
			DecayPerClaimPct: cfg.DecayPerClaimPct,
			RepairPct:        cfg.RepairPct,
		},
		service.MachineDefaults{
			BaseRate:    cfg.DefaultBaseRate,
			DurationSec: cfg.DefaultSessionDurationSec,
		},
	)
	log.Println("Machine Service business logic initialized.")

	// --- 6. Initialize API Handlers (passing business logic services) ---
	machineAPIHandlers := machineapi.NewMachineAPIHandlers(machineService)

	// --- 7. Initialize and Start Service Registrar ---
	registrar := registry.NewServiceRegistrar(redisClient, "machine-service", &cfg.CommonConfig)
	go registrar.Start()
	defer registrar.Stop()
	log.Printf("Service registrar started for 'machine-service' with Address: %s", cfg.ListenAddr)

	// The serviceTimeout for RegistryClient should be related to HeartbeatTTL from CommonConfig
	registryClient := registry.NewRegistryClient(redisClient, cfg.HeartbeatTTL)

	sessionSweeper := sweeper.NewSessionSweeper(cfg, registryClient, machineStore, sessionsStore, registrar)
	go sessionSweeper.Start()
	defer sessionSweeper.Stop()

	// --- 8. Setup HTTP Server and Register Routes ---
	baseServer := api.NewBaseServer(cfg.ListenAddr, log.Default())
	machineAPIHandlers.RegisterRoutes(baseServer.Router)
	log.Println("HTTP routes registered.")

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
	<-stop

	log.Println("Shutting down Machine Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := baseServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP server graceful shutdown failed: %v", err)
	}
	log.Println("Machine Service HTTP server gracefully stopped.")
	log.Println("Machine Service gracefully shut down.")
}
