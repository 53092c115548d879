// machine/store/running_sessions_store.go
package store

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	redisu "github.com/rigforge/rig-services/shared/redis"
	"github.com/redis/go-redis/v9"
)

// RunningSessionsStore tracks which machines currently have a running session
// in Redis. Each entry carries the session's end timestamp and expires on its
// own shortly after the session finishes, so the tracking set never needs a
// separate cleanup job. MongoDB stays the source of truth for machine state;
// these keys only tell the sweeper where to look.
type RunningSessionsStore struct {
	client *redis.ClusterClient
	grace  time.Duration // extra TTL past the session end before the key may expire
}

// NewRunningSessionsStore creates and returns a new RunningSessionsStore instance.
func NewRunningSessionsStore(client *redis.ClusterClient, grace time.Duration) *RunningSessionsStore {
	return &RunningSessionsStore{
		client: client,
		grace:  grace,
	}
}

// MarkRunning records that a machine session is underway and when it ends.
// The key lives until endsAt plus the configured grace period.
func (rs *RunningSessionsStore) MarkRunning(ctx context.Context, machineID string, endsAt time.Time) error {
	key := fmt.Sprintf(redisu.RunningSessionKeyPrefix, machineID)

	ttl := time.Until(endsAt) + rs.grace
	if ttl <= 0 {
		ttl = rs.grace
	}

	err := rs.client.Set(ctx, key, endsAt.Unix(), ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to mark machine %s session running in Redis: %w", machineID, err)
	}
	return nil
}

// ClearRunning removes the running-session entry for a machine. Clearing a
// machine that has no entry is not an error.
func (rs *RunningSessionsStore) ClearRunning(ctx context.Context, machineID string) error {
	key := fmt.Sprintf(redisu.RunningSessionKeyPrefix, machineID)
	if _, err := rs.client.Del(ctx, key).Result(); err != nil {
		return fmt.Errorf("failed to clear running session for machine %s from Redis: %w", machineID, err)
	}
	return nil
}

// GetAllRunning retrieves a map of all tracked machines and their session end
// times. In a Redis Cluster, this involves iterating over all master nodes.
func (rs *RunningSessionsStore) GetAllRunning(ctx context.Context) (map[string]time.Time, error) {
	running := make(map[string]time.Time)
	var mu sync.Mutex // Protects concurrent map writes from different cluster nodes

	err := rs.client.ForEachMaster(ctx, func(ctx context.Context, client *redis.Client) error {
		if client == nil {
			log.Printf("Warning: Redis Cluster ForEachMaster provided a nil client, skipping node.")
			return nil
		}

		// SCAN with the session key pattern so only tracking keys are touched.
		iter := client.Scan(ctx, 0, fmt.Sprintf(redisu.RunningSessionKeyPrefix, "*"), 0).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()

			// Extract the machine ID from the key (e.g., "session:{id}:" -> "id").
			startIdx := strings.Index(key, "{")
			endIdx := strings.Index(key, "}")
			if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
				log.Printf("Warning: Could not parse machine ID from malformed session key: %s. Skipping.", key)
				continue
			}
			machineID := key[startIdx+1 : endIdx]

			val, err := client.Get(ctx, key).Result()
			if err != nil {
				log.Printf("Warning: Failed to get session end for machine %s (key: %s): %v. Skipping.", machineID, key, err)
				continue
			}

			timestamp, parseErr := strconv.ParseInt(val, 10, 64)
			if parseErr != nil {
				log.Printf("Warning: Invalid timestamp '%s' for machine %s (key: %s). Skipping.", val, machineID, key)
				continue
			}

			mu.Lock()
			running[machineID] = time.Unix(timestamp, 0)
			mu.Unlock()
		}

		return iter.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("error during scan of running sessions across Redis masters: %w", err)
	}

	return running, nil
}
