// shared/config/config.go
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// CommonConfig holds configuration fields that are shared across multiple services.
type CommonConfig struct {
	RedisAddrs              []string      // Redis server addresses (e.g., "redis-cluster:6379")
	RedisPassword           string        // Redis password for authentication
	HeartbeatInterval       time.Duration // How often to send a heartbeat to registry (e.g., 5s)
	HeartbeatTTL            time.Duration // How long an instance is considered alive without a heartbeat (e.g., 15s)
	RegistryCleanupInterval time.Duration // How often the registry actively cleans stale entries (e.g., 30s)
	ServiceIP               string        // The IP address this service advertises for registration (Kubernetes Pod IP)
	ServicePort             int           // The port this service listens on, used for registration
}

// MachineServiceConfig holds configuration specific to the machine-service.
type MachineServiceConfig struct {
	CommonConfig                             // Embed CommonConfig
	ListenAddr                 string        // Address for the HTTP server (e.g., ":8082")
	MongoDBConnStr             string        // MongoDB connection string
	MongoDBDatabase            string        // MongoDB database name (e.g., "rigforge")
	MongoDBMachinesCollection  string        // MongoDB collection for machines (e.g., "machines")
	PlayerServiceURL           string        // The URL to the used player-service (e.g., "http://player-service:8081")
	SweepInterval              time.Duration // How often the sweeper looks for finished sessions (e.g., 5s)
	SessionKeyGrace            time.Duration // Extra TTL past session end before a tracking key may expire (e.g., 1m)
	DefaultBaseRate            float64       // Base production rate for newly created machines (IGT per second)
	DefaultSessionDurationSec  int64         // Base session duration for newly created machines
	ElectricBillPct            int           // Percent of the health-adjusted payout charged as the electric bill
	DecayPerClaimPct           int           // Health percentage points lost per claimed session
	RepairPct                  int           // Percent of lost production charged per repair
}

// PlayerServiceConfig holds configuration specific to the player-service.
type PlayerServiceConfig struct {
	CommonConfig                      // Embed CommonConfig
	ListenAddr               string   // Address for the HTTP server to listen on (e.g., ":8081")
	MongoDBConnStr           string   // MongoDB connection string
	MongoDBDatabase          string   // MongoDB database name (e.g., "rigforge")
	MongoDBPlayersCollection string   // MongoDB collection for players (e.g., "players")
	MongoDBLabsCollection    string   // MongoDB collection for lab boards (e.g., "labs")
}

// LoadCommonConfig loads common configuration from environment variables.
func LoadCommonConfig() (CommonConfig, error) {
	cfg := CommonConfig{}
	var err error

	// Redis Addresses
	redisAddrsStr := os.Getenv("REDIS_ADDRS")
	if redisAddrsStr == "" {
		cfg.RedisAddrs = []string{"redis-cluster-headless.rigforge.svc.cluster.local:6379"} // Default for K8s Service
	} else {
		for _, addr := range strings.Split(redisAddrsStr, ",") {
			cfg.RedisAddrs = append(cfg.RedisAddrs, strings.TrimSpace(addr))
		}
	}

	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	cfg.HeartbeatInterval, err = getDuration("SERVICE_HEARTBEAT_INTERVAL", 5*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.HeartbeatTTL, err = getDuration("SERVICE_HEARTBEAT_TTL", 15*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.RegistryCleanupInterval, err = getDuration("SERVICE_REGISTRY_CLEANUP_INTERVAL", 30*time.Second)
	if err != nil {
		return cfg, err
	}

	// Service IP (for registration, from Kubernetes Pod IP)
	cfg.ServiceIP = os.Getenv("POD_IP") // Injected by Kubernetes
	if cfg.ServiceIP == "" {
		// Fallback for local development outside K8s or if not injected
		cfg.ServiceIP = "0.0.0.0"
		fmt.Printf("WARNING: POD_IP not set, defaulting ServiceIP to %s\n", cfg.ServiceIP)
	}

	return cfg, nil
}

// Helper function to parse duration from environment variable
func getDuration(envKey string, defaultVal time.Duration) (time.Duration, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format for %s: %w", envKey, err)
	}
	return d, nil
}

// Helper function to parse int from environment variable
func getInt(envKey string, defaultVal int) (int, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer format for %s: %w", envKey, err)
	}
	return i, nil
}

// Helper function to parse int64 from environment variable
func getInt64(envKey string, defaultVal int64) (int64, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseInt(valStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer format for %s: %w", envKey, err)
	}
	return i, nil
}

// Helper function to parse float from environment variable
func getFloat(envKey string, defaultVal float64) (float64, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float format for %s: %w", envKey, err)
	}
	return f, nil
}

// extractPort extracts the numeric port from a listen address (e.g., ":8082" -> 8082, "0.0.0.0:8082" -> 8082)
func extractPort(listenAddr string) (int, error) {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		// If SplitHostPort fails, check if ListenAddr is just a port (e.g., ":8082")
		if strings.HasPrefix(listenAddr, ":") {
			portStr = strings.TrimPrefix(listenAddr, ":")
		} else {
			return 0, fmt.Errorf("invalid ListenAddr format for port extraction: %w", err)
		}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port number '%s': %w", portStr, err)
	}
	return port, nil
}

// LoadMachineServiceConfig loads configuration for the machine-service.
func LoadMachineServiceConfig() (*MachineServiceConfig, error) {
	common, err := LoadCommonConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load common config for machine-service: %w", err)
	}

	cfg := &MachineServiceConfig{
		CommonConfig:              common,
		ListenAddr:                os.Getenv("MACHINE_SERVICE_LISTEN_ADDR"),
		MongoDBConnStr:            os.Getenv("MONGODB_CONN_STR"),
		MongoDBDatabase:           os.Getenv("MONGODB_DATABASE"),
		MongoDBMachinesCollection: os.Getenv("MONGODB_MACHINES_COLLECTION"),
		PlayerServiceURL:          os.Getenv("PLAYERS_SERVICE_URL"),
	}

	// Apply defaults for specific fields if not set
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8082"
	}
	if cfg.MongoDBConnStr == "" {
		cfg.MongoDBConnStr = "mongodb://mongodb-service:27017" // Default for K8s Service
	}
	if cfg.MongoDBDatabase == "" {
		cfg.MongoDBDatabase = "rigforge"
	}
	if cfg.MongoDBMachinesCollection == "" {
		cfg.MongoDBMachinesCollection = "machines"
	}
	if cfg.PlayerServiceURL == "" {
		cfg.PlayerServiceURL = "http://player-service:8081" // Default for K8s internal DNS
	}

	// Extract ServicePort from ListenAddr
	cfg.ServicePort, err = extractPort(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to extract port from MACHINE_SERVICE_LISTEN_ADDR '%s': %w", cfg.ListenAddr, err)
	}

	cfg.SweepInterval, err = getDuration("MACHINE_SWEEP_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.SessionKeyGrace, err = getDuration("MACHINE_SESSION_KEY_GRACE", time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.DefaultBaseRate, err = getFloat("MACHINE_DEFAULT_BASE_RATE", 0.5)
	if err != nil {
		return nil, err
	}
	// 4 hours. Set MACHINE_DEFAULT_SESSION_DURATION_SEC=12 for fast local loops.
	cfg.DefaultSessionDurationSec, err = getInt64("MACHINE_DEFAULT_SESSION_DURATION_SEC", 14400)
	if err != nil {
		return nil, err
	}
	if cfg.DefaultSessionDurationSec <= 0 {
		return nil, fmt.Errorf("MACHINE_DEFAULT_SESSION_DURATION_SEC must be positive (got %d)", cfg.DefaultSessionDurationSec)
	}

	cfg.ElectricBillPct, err = getInt("MACHINE_ELECTRIC_BILL_PCT", 1)
	if err != nil {
		return nil, err
	}
	cfg.DecayPerClaimPct, err = getInt("MACHINE_DECAY_PER_CLAIM_PCT", 5)
	if err != nil {
		return nil, err
	}
	cfg.RepairPct, err = getInt("MACHINE_REPAIR_PCT", 1)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadPlayerServiceConfig loads configuration for the player-service.
func LoadPlayerServiceConfig() (*PlayerServiceConfig, error) {
	common, err := LoadCommonConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load common config for player-service: %w", err)
	}

	cfg := &PlayerServiceConfig{
		CommonConfig:             common,
		ListenAddr:               os.Getenv("PLAYER_SERVICE_LISTEN_ADDR"),
		MongoDBConnStr:           os.Getenv("MONGODB_CONN_STR"),
		MongoDBDatabase:          os.Getenv("MONGODB_DATABASE"),
		MongoDBPlayersCollection: os.Getenv("MONGODB_PLAYERS_COLLECTION"),
		MongoDBLabsCollection:    os.Getenv("MONGODB_LABS_COLLECTION"),
	}

	// Apply defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8081"
	}
	if cfg.MongoDBConnStr == "" {
		cfg.MongoDBConnStr = "mongodb://mongodb-service:27017" // Default for K8s Service
	}
	if cfg.MongoDBDatabase == "" {
		cfg.MongoDBDatabase = "rigforge"
	}
	if cfg.MongoDBPlayersCollection == "" {
		cfg.MongoDBPlayersCollection = "players"
	}
	if cfg.MongoDBLabsCollection == "" {
		cfg.MongoDBLabsCollection = "labs"
	}

	// Extract ServicePort from ListenAddr
	cfg.ServicePort, err = extractPort(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to extract port from PLAYER_SERVICE_LISTEN_ADDR '%s': %w", cfg.ListenAddr, err)
	}

	return cfg, nil
}
