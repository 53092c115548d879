// machine/service/machine_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rigforge/rig-services/engine"
	"github.com/rigforge/rig-services/machine/store"
	"github.com/rigforge/rig-services/shared/api"
	"github.com/rigforge/rig-services/shared/models"
	playerserviceclient "github.com/rigforge/rig-services/shared/service"
)

// Service-level errors. Handlers translate these into HTTP status codes.
var (
	ErrMachineNotFound  = errors.New("machine not found")
	ErrMachineConflict  = errors.New("machine state changed, retry")
	ErrInsufficientGold = errors.New("insufficient gold")
)

// MachineDefaults carries the parameters applied to newly created machines.
type MachineDefaults struct {
	BaseRate    float64
	DurationSec int64
}

// MachineService holds references to the data stores and other dependencies
// needed for machine session business logic. Machine documents live in MongoDB
// as the source of truth; Redis only tracks which sessions are underway so the
// sweeper knows where to look. Gold balances belong to the Player Service and
// are only ever touched through its client.
type MachineService struct {
	MachineStore  *store.MachineStore
	SessionsStore *store.RunningSessionsStore
	PlayerClient  *playerserviceclient.PlayerServiceClient
	Catalog       *engine.Catalog
	Tuning        engine.Tuning
	Defaults      MachineDefaults
}

// NewMachineService is the constructor for MachineService.
func NewMachineService(
	machineStore *store.MachineStore,
	sessionsStore *store.RunningSessionsStore,
	playerClient *playerserviceclient.PlayerServiceClient,
	catalog *engine.Catalog,
	tuning engine.Tuning,
	defaults MachineDefaults,
) *MachineService {
	return &MachineService{
		MachineStore:  machineStore,
		SessionsStore: sessionsStore,
		PlayerClient:  playerClient,
		Catalog:       catalog,
		Tuning:        tuning,
		Defaults:      defaults,
	}
}

// DefaultMachineID returns the ID of a player's first machine.
func DefaultMachineID(ownerID string) string {
	return fmt.Sprintf("%s-m1", ownerID)
}

// EnsureMachine creates the machine with default parameters if it does not
// exist yet and returns the stored document either way. The owning player is
// ensured first so a fresh install gets a player and a rig in one call.
func (ms *MachineService) EnsureMachine(ctx context.Context, ownerID, machineID, username string) (*models.Machine, error) {
	if machineID == "" {
		machineID = DefaultMachineID(ownerID)
	}

	if _, err := ms.PlayerClient.EnsurePlayer(ctx, ownerID, username); err != nil {
		return nil, fmt.Errorf("failed to ensure player %s before machine creation: %w", ownerID, err)
	}

	now := time.Now()
	machine := &models.Machine{
		ID:          machineID,
		OwnerID:     ownerID,
		BaseRate:    ms.Defaults.BaseRate,
		DurationSec: ms.Defaults.DurationSec,
		HealthPct:   100,
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}

	stored, err := ms.MachineStore.EnsureMachine(ctx, machine)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure machine %s: %w", machineID, err)
	}
	return stored, nil
}

// GetMachine retrieves a machine by ID.
func (ms *MachineService) GetMachine(ctx context.Context, machineID string) (*models.Machine, error) {
	machine, err := ms.MachineStore.GetMachine(ctx, machineID)
	if err != nil {
		if errors.Is(err, store.ErrMachineNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMachineNotFound, machineID)
		}
		return nil, err
	}
	return machine, nil
}

// ListMachines retrieves all machines belonging to a player.
func (ms *MachineService) ListMachines(ctx context.Context, ownerID string) ([]*models.Machine, error) {
	return ms.MachineStore.ListMachinesByOwner(ctx, ownerID)
}

// StartMachine begins a new production session on a machine. The lab buffs in
// effect at this moment are frozen into the machine for the whole session.
// An inline lab, when provided, takes priority over the player's stored board.
func (ms *MachineService) StartMachine(ctx context.Context, machineID string, inlineLab *models.Lab) (*models.Machine, error) {
	machine, err := ms.GetMachine(ctx, machineID)
	if err != nil {
		return nil, err
	}

	lab, err := ms.resolveLab(ctx, machine.OwnerID, inlineLab)
	if err != nil {
		return nil, err
	}
	buffs := engine.ComputeLabBuffs(lab, ms.Catalog)

	expectedUpdatedAt := machine.UpdatedAt
	now := time.Now()
	if err := engine.StartSession(machine, buffs, now); err != nil {
		return nil, err
	}

	if err := ms.MachineStore.UpdateMachineCAS(ctx, machine, expectedUpdatedAt); err != nil {
		return nil, ms.translateStoreErr(err)
	}

	// Tracking failures are not fatal: the session is authoritative in MongoDB
	// and the status endpoint still works, only the sweeper loses a shortcut.
	endsAt := now.Add(time.Duration(machine.EffectiveDurationSec) * time.Second)
	if err := ms.SessionsStore.MarkRunning(ctx, machine.ID, endsAt); err != nil {
		log.Printf("WARN: Failed to track running session for machine %s: %v", machine.ID, err)
	}

	log.Printf("INFO: Machine %s started: rate %.4f IGT/s for %ds", machine.ID, machine.EffectiveRate, machine.EffectiveDurationSec)
	return machine, nil
}

// ClaimMachine settles a completed session: computes the payout, decays
// health, resets the machine to idle, and credits the final amount to the
// owner. The machine state is persisted before the credit so a crash can
// never pay the same session twice.
func (ms *MachineService) ClaimMachine(ctx context.Context, machineID string) (*engine.ClaimResult, *models.Machine, error) {
	machine, err := ms.GetMachine(ctx, machineID)
	if err != nil {
		return nil, nil, err
	}

	expectedUpdatedAt := machine.UpdatedAt
	result, err := engine.ClaimSession(machine, ms.Tuning, time.Now())
	if err != nil {
		return nil, nil, err
	}

	if err := ms.MachineStore.UpdateMachineCAS(ctx, machine, expectedUpdatedAt); err != nil {
		return nil, nil, ms.translateStoreErr(err)
	}

	if err := ms.SessionsStore.ClearRunning(ctx, machine.ID); err != nil {
		log.Printf("WARN: Failed to clear session tracking for machine %s: %v", machine.ID, err)
	}

	if result.Final > 0 {
		if _, err := ms.PlayerClient.CreditGold(ctx, machine.OwnerID, result.Final, "machine_claim"); err != nil {
			// The session is already settled; losing the credit here means the
			// player is owed gold. Loud log so the payout can be replayed.
			log.Printf("ERROR: Failed to credit %d gold to player %s for machine %s claim: %v", result.Final, machine.OwnerID, machine.ID, err)
			return nil, nil, fmt.Errorf("failed to credit claim payout for machine %s: %w", machine.ID, err)
		}
	}

	log.Printf("INFO: Machine %s claimed: gross %d, final %d, health %d%%", machine.ID, result.Gross, result.Final, result.HealthAfter)
	return result, machine, nil
}

// RepairMachine restores a machine to full health, charging the owner a cost
// proportional to the missing health and the rig's current earning power.
// Gold is debited before the machine is touched so an insufficient balance
// leaves everything unchanged; a lost write race refunds the debit.
func (ms *MachineService) RepairMachine(ctx context.Context, machineID string, inlineLab *models.Lab) (int64, *models.Machine, error) {
	machine, err := ms.GetMachine(ctx, machineID)
	if err != nil {
		return 0, nil, err
	}

	lab, err := ms.resolveLab(ctx, machine.OwnerID, inlineLab)
	if err != nil {
		return 0, nil, err
	}
	buffs := engine.ComputeLabBuffs(lab, ms.Catalog)

	cost, err := engine.RepairCost(machine, buffs, ms.Tuning)
	if err != nil {
		return 0, nil, err
	}

	// A zero-rate machine quotes a free repair; skip the debit entirely since
	// the player service rejects zero-amount mutations.
	if cost > 0 {
		if _, err := ms.PlayerClient.DebitGold(ctx, machine.OwnerID, cost, "machine_repair"); err != nil {
			if errors.Is(err, playerserviceclient.ErrInsufficientFunds) {
				return 0, nil, fmt.Errorf("%w: repair of %s costs %d", ErrInsufficientGold, machine.ID, cost)
			}
			return 0, nil, fmt.Errorf("failed to debit repair cost for machine %s: %w", machine.ID, err)
		}
	}

	expectedUpdatedAt := machine.UpdatedAt
	machine.HealthPct = 100
	if err := ms.MachineStore.UpdateMachineCAS(ctx, machine, expectedUpdatedAt); err != nil {
		if cost > 0 {
			if _, refundErr := ms.PlayerClient.CreditGold(ctx, machine.OwnerID, cost, "machine_repair_refund"); refundErr != nil {
				log.Printf("ERROR: Failed to refund %d gold to player %s after repair conflict on machine %s: %v", cost, machine.OwnerID, machine.ID, refundErr)
			}
		}
		return 0, nil, ms.translateStoreErr(err)
	}

	log.Printf("INFO: Machine %s repaired for %d gold", machine.ID, cost)
	return cost, machine, nil
}

// MachineStatus projects the machine's current progress from its stored state
// and the clock. It never writes anything.
func (ms *MachineService) MachineStatus(ctx context.Context, machineID string) (engine.Status, *models.Machine, error) {
	machine, err := ms.GetMachine(ctx, machineID)
	if err != nil {
		return engine.Status{}, nil, err
	}
	return engine.ComputeStatus(machine, time.Now()), machine, nil
}

// ProjectStatus projects progress for a caller-supplied machine snapshot
// without touching storage. Used by the batch status endpoint where clients
// send their local machine state.
func (ms *MachineService) ProjectStatus(machine *models.Machine) engine.Status {
	return engine.ComputeStatus(machine, time.Now())
}

// resolveLab picks the lab board to compute buffs from: an inline board wins,
// otherwise the player's stored board, otherwise a fresh default one. A player
// who never touched their lab simply gets neutral buffs.
func (ms *MachineService) resolveLab(ctx context.Context, ownerID string, inlineLab *models.Lab) (*models.Lab, error) {
	if inlineLab != nil {
		return inlineLab, nil
	}

	lab, err := ms.PlayerClient.GetLab(ctx, ownerID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return engine.NewDefaultLab(ownerID), nil
		}
		return nil, fmt.Errorf("failed to resolve lab for player %s: %w", ownerID, err)
	}
	return lab, nil
}

func (ms *MachineService) translateStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrMachineNotFound):
		return fmt.Errorf("%w: %v", ErrMachineNotFound, err)
	case errors.Is(err, store.ErrVersionConflict):
		return fmt.Errorf("%w: %v", ErrMachineConflict, err)
	default:
		return err
	}
}
