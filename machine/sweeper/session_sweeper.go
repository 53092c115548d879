// machine/sweeper/session_sweeper.go
package sweeper

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/rigforge/rig-services/engine"
	"github.com/rigforge/rig-services/machine/store"
	cluster "github.com/rigforge/rig-services/shared/cluster"
	"github.com/rigforge/rig-services/shared/config"
	"github.com/rigforge/rig-services/shared/registry"
)

// SessionSweeper periodically finalizes machine sessions that ran out while
// nobody was looking. A finalized machine is marked complete in MongoDB so
// the reward stays claimable even after the Redis tracking key expires.
// Responsibility for each machine is sharded across instances with consistent
// hashing so every session is swept exactly once.
type SessionSweeper struct {
	config            *config.MachineServiceConfig
	registryClient    *registry.RegistryClient
	assignmentManager *cluster.ServiceAssignmentManager
	machineStore      *store.MachineStore
	sessionsStore     *store.RunningSessionsStore
	serviceRegistrar  *registry.ServiceRegistrar
	ctx               context.Context
	cancel            context.CancelFunc
}

// NewSessionSweeper creates a new SessionSweeper instance.
func NewSessionSweeper(
	cfg *config.MachineServiceConfig,
	registryClient *registry.RegistryClient,
	machineStore *store.MachineStore,
	sessionsStore *store.RunningSessionsStore,
	serviceRegistrar *registry.ServiceRegistrar,
) *SessionSweeper {
	log.Println("SessionSweeper: Initialized.")
	ctx, cancel := context.WithCancel(context.Background())

	assignmentManager := cluster.NewServiceAssignmentManager(
		registryClient,
		serviceRegistrar,
		cfg.HeartbeatInterval, // Using heartbeat interval for consistent hash updates
	)

	return &SessionSweeper{
		config:            cfg,
		registryClient:    registryClient,
		assignmentManager: assignmentManager,
		machineStore:      machineStore,
		sessionsStore:     sessionsStore,
		serviceRegistrar:  serviceRegistrar,
		ctx:               ctx,
		cancel:            cancel,
	}
}

// Start initiates the sweep loop. This should be run in a goroutine.
func (ss *SessionSweeper) Start() {
	log.Printf("Session Sweeper starting with sweep interval: %v", ss.config.SweepInterval)
	ticker := time.NewTicker(ss.config.SweepInterval)
	defer ticker.Stop()

	// Start the ServiceAssignmentManager's update loop in a goroutine
	go ss.assignmentManager.Start()

	for {
		select {
		case <-ss.ctx.Done():
			log.Println("Session Sweeper shutting down.")
			ss.assignmentManager.Stop()
			return
		case <-ticker.C:
			ss.performSweep()
		}
	}
}

// Stop gracefully stops the sweep loop.
func (ss *SessionSweeper) Stop() {
	ss.cancel()
}

// performSweep executes the logic for a single sweep pass.
func (ss *SessionSweeper) performSweep() {
	running, err := ss.sessionsStore.GetAllRunning(ss.ctx)
	if err != nil {
		log.Printf("Error getting running sessions for sweep: %v", err)
		return
	}

	if len(running) == 0 {
		return
	}

	now := time.Now()
	for machineID, endsAt := range running {
		if endsAt.After(now) {
			continue // still producing
		}

		isResponsible, err := ss.assignmentManager.IsResponsible(machineID)
		if err != nil {
			log.Printf("WARNING: SessionSweeper: Failed to check responsibility for machine %s: %v", machineID, err)
			continue
		}
		if !isResponsible {
			continue
		}

		if err := ss.finalizeMachine(machineID); err != nil {
			log.Printf("Error finalizing session for machine %s: %v", machineID, err)
		}
	}
}

// finalizeMachine marks a finished session complete in MongoDB and drops the
// Redis tracking key. Machines already settled by a claim just get their key
// cleared.
func (ss *SessionSweeper) finalizeMachine(machineID string) error {
	ctx, cancel := context.WithTimeout(ss.ctx, 10*time.Second)
	defer cancel()

	machine, err := ss.machineStore.GetMachine(ctx, machineID)
	if err != nil {
		if errors.Is(err, store.ErrMachineNotFound) {
			// Tracking key without a document; drop the key and move on.
			return ss.sessionsStore.ClearRunning(ctx, machineID)
		}
		return err
	}

	if !machine.Running {
		// Claimed or finalized elsewhere; the key is stale.
		return ss.sessionsStore.ClearRunning(ctx, machineID)
	}

	st := engine.ComputeStatus(machine, time.Now())
	if !st.Complete {
		// The Redis timestamp ran ahead of the stored session; trust MongoDB.
		return nil
	}

	expectedUpdatedAt := machine.UpdatedAt
	machine.Running = false
	machine.Complete = true
	machine.ProgressSec = st.DurationSec
	machine.StartedAt = nil

	if err := ss.machineStore.UpdateMachineCAS(ctx, machine, expectedUpdatedAt); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			// Someone claimed or restarted the machine mid-sweep; next pass
			// will see the new state.
			return nil
		}
		return err
	}

	if err := ss.sessionsStore.ClearRunning(ctx, machineID); err != nil {
		log.Printf("WARNING: SessionSweeper: Failed to clear tracking key for machine %s: %v", machineID, err)
	}

	log.Printf("INFO: SessionSweeper: Machine %s session finalized as complete.", machineID)
	return nil
}
