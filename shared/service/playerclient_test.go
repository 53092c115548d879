// shared/service/playerclient_test.go
package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rigforge/rig-services/shared/api"
	"github.com/rigforge/rig-services/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakePlayerService stands in for the Player Service HTTP surface with a
// single known player holding 100 gold.
func newFakePlayerService(t *testing.T) *httptest.Server {
	t.Helper()

	router := mux.NewRouter()
	router.HandleFunc("/players/{uuid}", func(w http.ResponseWriter, r *http.Request) {
		uuid := mux.Vars(r)["uuid"]
		if uuid != "player-1" {
			api.WriteNotFound(w, "Player not found")
			return
		}
		api.WriteJSON(w, http.StatusOK, &models.Player{ID: uuid, Username: "miner_joe", Gold: 100})
	}).Methods("GET")

	router.HandleFunc("/players/{uuid}/gold/debit", func(w http.ResponseWriter, r *http.Request) {
		var req GoldMutationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Amount > 100 {
			api.WriteConflict(w, "Insufficient gold")
			return
		}
		api.WriteJSON(w, http.StatusOK, GoldMutationResponse{UUID: mux.Vars(r)["uuid"], Gold: 100 - req.Amount})
	}).Methods("POST")

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestGetPlayerReturnsDocument(t *testing.T) {
	server := newFakePlayerService(t)
	client := NewPlayerClient(server.URL)

	player, err := client.GetPlayer(context.Background(), "player-1")
	require.NoError(t, err)
	assert.Equal(t, "player-1", player.ID)
	assert.Equal(t, "miner_joe", player.Username)
	assert.Equal(t, int64(100), player.Gold)
}

func TestGetPlayerMapsMissingPlayerToNotFound(t *testing.T) {
	server := newFakePlayerService(t)
	client := NewPlayerClient(server.URL)

	_, err := client.GetPlayer(context.Background(), "nobody")
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestDebitGoldReturnsNewBalance(t *testing.T) {
	server := newFakePlayerService(t)
	client := NewPlayerClient(server.URL)

	balance, err := client.DebitGold(context.Background(), "player-1", 40, "test_debit")
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)
}

func TestDebitGoldMapsConflictToInsufficientFunds(t *testing.T) {
	server := newFakePlayerService(t)
	client := NewPlayerClient(server.URL)

	_, err := client.DebitGold(context.Background(), "player-1", 5000, "test_debit")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}
