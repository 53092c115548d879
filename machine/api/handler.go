// machine/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rigforge/rig-services/engine"
	"github.com/rigforge/rig-services/machine/service"
	"github.com/rigforge/rig-services/shared/api"
	"github.com/rigforge/rig-services/shared/models"
)

// MachineAPIHandlers holds references to the services that handle business
// logic for the machine service.
type MachineAPIHandlers struct {
	MachineService *service.MachineService
}

// NewMachineAPIHandlers is the constructor for the Machine API handlers.
func NewMachineAPIHandlers(ms *service.MachineService) *MachineAPIHandlers {
	return &MachineAPIHandlers{
		MachineService: ms,
	}
}

// --- Request/Response DTOs (Data Transfer Objects) ---

// EnsureMachineRequest is the structure for the request body of POST /machines.
type EnsureMachineRequest struct {
	OwnerID   string `json:"owner_id"`
	MachineID string `json:"machine_id,omitempty"` // defaults to the owner's first rig
	Username  string `json:"username,omitempty"`
}

// SessionActionRequest is the optional request body for start and repair.
// An inline lab board overrides the player's stored one for this action.
type SessionActionRequest struct {
	Lab *models.Lab `json:"lab,omitempty"`
}

// ClaimResponse is the structure for the JSON response of a claim.
type ClaimResponse struct {
	MachineID   string `json:"machine_id"`
	Gross       int64  `json:"gross"`
	AfterHealth int64  `json:"after_health"`
	Fee         int64  `json:"fee"`
	Final       int64  `json:"final"`
	HealthPct   int    `json:"health_pct"`
}

// RepairResponse is the structure for the JSON response of a repair.
type RepairResponse struct {
	MachineID string `json:"machine_id"`
	Cost      int64  `json:"cost"`
	HealthPct int    `json:"health_pct"`
}

// StatusResponse is the structure for the JSON response of status requests.
type StatusResponse struct {
	MachineID     string  `json:"machine_id"`
	Running       bool    `json:"running"`
	Complete      bool    `json:"complete"`
	ProgressSec   int64   `json:"progress_sec"`
	RemainingSec  int64   `json:"remaining_sec"`
	DurationSec   int64   `json:"duration_sec"`
	EffectiveRate float64 `json:"effective_rate"`
	HealthPct     int     `json:"health_pct"`
}

// BatchStatusRequest is the structure for the request body of POST /machines/status.
type BatchStatusRequest struct {
	Machines []*models.Machine `json:"machines"`
}

// BatchStatusResponse is the structure for the JSON response of POST /machines/status.
type BatchStatusResponse struct {
	Statuses []StatusResponse `json:"statuses"`
}

func statusResponse(machine *models.Machine, st engine.Status) StatusResponse {
	return StatusResponse{
		MachineID:     machine.ID,
		Running:       st.Running,
		Complete:      st.Complete,
		ProgressSec:   st.ProgressSec,
		RemainingSec:  st.RemainingSec,
		DurationSec:   st.DurationSec,
		EffectiveRate: st.EffectiveRate,
		HealthPct:     machine.HealthPct,
	}
}

// decodeOptionalAction tolerates an empty body: start and repair work without
// one when the stored lab board should be used.
func decodeOptionalAction(r *http.Request) (*SessionActionRequest, error) {
	var req SessionActionRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &req, nil
}

// writeMachineError maps service and engine errors to HTTP status codes.
func writeMachineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrMachineNotFound):
		api.WriteNotFound(w, "Machine not found")
	case errors.Is(err, service.ErrMachineConflict):
		api.WriteConflict(w, "Machine state changed, retry the request")
	case errors.Is(err, service.ErrInsufficientGold):
		api.WriteConflict(w, "Insufficient gold")
	case errors.Is(err, engine.ErrAlreadyRunning):
		api.WriteConflict(w, "Machine already has a running session")
	case errors.Is(err, engine.ErrMachineBroken):
		api.WriteConflict(w, "Machine is broken and must be repaired first")
	case errors.Is(err, engine.ErrSessionNotComplete):
		api.WriteConflict(w, "Session is not complete yet")
	case errors.Is(err, engine.ErrCannotRepairWhileRunning):
		api.WriteConflict(w, "Cannot repair while a session is running")
	case errors.Is(err, engine.ErrAlreadyHealthy):
		api.WriteBadRequest(w, "Machine is already at full health")
	default:
		api.WriteInternalServerError(w, "Internal server error")
	}
}

// --- Handler Methods ---

// HandleEnsureMachine handles requests to create a machine if it is missing.
// POST /machines
// Body: { "owner_id": "<player_uuid>", "machine_id": "...", "username": "..." }
func (mah *MachineAPIHandlers) HandleEnsureMachine(w http.ResponseWriter, r *http.Request) {
	var req EnsureMachineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.OwnerID == "" {
		api.WriteBadRequest(w, "owner_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	machine, err := mah.MachineService.EnsureMachine(ctx, req.OwnerID, req.MachineID, req.Username)
	if err != nil {
		log.Printf("Error ensuring machine for owner %s: %v", req.OwnerID, err)
		writeMachineError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, machine)
}

// HandleGetMachine handles requests to fetch a machine document.
// GET /machines/{id}
func (mah *MachineAPIHandlers) HandleGetMachine(w http.ResponseWriter, r *http.Request) {
	machineID := mux.Vars(r)["id"]
	if machineID == "" {
		api.WriteBadRequest(w, "Machine ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	machine, err := mah.MachineService.GetMachine(ctx, machineID)
	if err != nil {
		log.Printf("Error getting machine %s: %v", machineID, err)
		writeMachineError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, machine)
}

// HandleListMachines handles requests to list a player's machines.
// GET /players/{uuid}/machines
func (mah *MachineAPIHandlers) HandleListMachines(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["uuid"]
	if ownerID == "" {
		api.WriteBadRequest(w, "Player UUID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	machines, err := mah.MachineService.ListMachines(ctx, ownerID)
	if err != nil {
		log.Printf("Error listing machines for owner %s: %v", ownerID, err)
		writeMachineError(w, err)
		return
	}
	if machines == nil {
		machines = []*models.Machine{}
	}

	api.WriteJSON(w, http.StatusOK, machines)
}

// HandleStart handles requests to start a production session.
// POST /machines/{id}/start
// Body (optional): { "lab": { ... } }
func (mah *MachineAPIHandlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	machineID := mux.Vars(r)["id"]
	if machineID == "" {
		api.WriteBadRequest(w, "Machine ID is required")
		return
	}

	req, err := decodeOptionalAction(r)
	if err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	machine, err := mah.MachineService.StartMachine(ctx, machineID, req.Lab)
	if err != nil {
		log.Printf("Error starting machine %s: %v", machineID, err)
		writeMachineError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, machine)
}

// HandleClaim handles requests to settle a completed session.
// POST /machines/{id}/claim
func (mah *MachineAPIHandlers) HandleClaim(w http.ResponseWriter, r *http.Request) {
	machineID := mux.Vars(r)["id"]
	if machineID == "" {
		api.WriteBadRequest(w, "Machine ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, machine, err := mah.MachineService.ClaimMachine(ctx, machineID)
	if err != nil {
		log.Printf("Error claiming machine %s: %v", machineID, err)
		writeMachineError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, ClaimResponse{
		MachineID:   machine.ID,
		Gross:       result.Gross,
		AfterHealth: result.AfterHealth,
		Fee:         result.Fee,
		Final:       result.Final,
		HealthPct:   result.HealthAfter,
	})
}

// HandleRepair handles requests to restore a machine to full health.
// POST /machines/{id}/repair
// Body (optional): { "lab": { ... } }
func (mah *MachineAPIHandlers) HandleRepair(w http.ResponseWriter, r *http.Request) {
	machineID := mux.Vars(r)["id"]
	if machineID == "" {
		api.WriteBadRequest(w, "Machine ID is required")
		return
	}

	req, err := decodeOptionalAction(r)
	if err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cost, machine, err := mah.MachineService.RepairMachine(ctx, machineID, req.Lab)
	if err != nil {
		log.Printf("Error repairing machine %s: %v", machineID, err)
		writeMachineError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, RepairResponse{
		MachineID: machine.ID,
		Cost:      cost,
		HealthPct: machine.HealthPct,
	})
}

// HandleStatus handles requests to project a machine's current progress.
// GET /machines/{id}/status
func (mah *MachineAPIHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	machineID := mux.Vars(r)["id"]
	if machineID == "" {
		api.WriteBadRequest(w, "Machine ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	st, machine, err := mah.MachineService.MachineStatus(ctx, machineID)
	if err != nil {
		log.Printf("Error getting status for machine %s: %v", machineID, err)
		writeMachineError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, statusResponse(machine, st))
}

// HandleBatchStatus projects progress for machine snapshots supplied by the
// caller, without touching storage.
// POST /machines/status
// Body: { "machines": [ { ... }, ... ] }
func (mah *MachineAPIHandlers) HandleBatchStatus(w http.ResponseWriter, r *http.Request) {
	var req BatchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}
	if len(req.Machines) == 0 {
		api.WriteBadRequest(w, "machines is required")
		return
	}

	resp := BatchStatusResponse{Statuses: make([]StatusResponse, 0, len(req.Machines))}
	for _, machine := range req.Machines {
		if machine == nil || machine.ID == "" {
			api.WriteBadRequest(w, "each machine needs an id")
			return
		}
		resp.Statuses = append(resp.Statuses, statusResponse(machine, mah.MachineService.ProjectStatus(machine)))
	}

	api.WriteJSON(w, http.StatusOK, resp)
}

// RegisterRoutes registers all API endpoints for the Machine Service.
// This method is called from main.go to set up the HTTP routes.
func (mah *MachineAPIHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/machines", mah.HandleEnsureMachine).Methods("POST")
	router.HandleFunc("/machines/status", mah.HandleBatchStatus).Methods("POST")
	router.HandleFunc("/machines/{id}", mah.HandleGetMachine).Methods("GET")
	router.HandleFunc("/machines/{id}/start", mah.HandleStart).Methods("POST")
	router.HandleFunc("/machines/{id}/claim", mah.HandleClaim).Methods("POST")
	router.HandleFunc("/machines/{id}/repair", mah.HandleRepair).Methods("POST")
	router.HandleFunc("/machines/{id}/status", mah.HandleStatus).Methods("GET")

	router.HandleFunc("/players/{uuid}/machines", mah.HandleListMachines).Methods("GET")
}
