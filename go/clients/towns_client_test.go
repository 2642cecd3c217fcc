package clients

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListTowns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/towns", r.URL.Path)
		json.NewEncoder(w).Encode(townsResponse{Towns: []TownListing{
			{TownID: "t1", FriendlyName: "plaza", CurrentOccupancy: 3, MaximumOccupancy: 50},
		}})
	}))
	defer srv.Close()

	towns, err := NewTownsClient(srv.URL).ListTowns()
	require.NoError(t, err)
	require.Len(t, towns, 1)
	require.Equal(t, "plaza", towns[0].FriendlyName)
}

func TestCreateTown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CreateTownRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "new town", req.FriendlyName)
		require.True(t, req.IsPubliclyListed)

		json.NewEncoder(w).Encode(CreateTownResponse{TownID: "t2", UpdatePassword: "secret"})
	}))
	defer srv.Close()

	created, err := NewTownsClient(srv.URL).CreateTown(CreateTownRequest{
		FriendlyName:     "new town",
		IsPubliclyListed: true,
	})
	require.NoError(t, err)
	require.Equal(t, "t2", created.TownID)
	require.Equal(t, "secret", created.UpdatePassword)
}

func TestUpdateTown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/towns/t1", r.URL.Path)

		var req UpdateTownRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "secret", req.Password)
		require.NotNil(t, req.FriendlyName)
		require.Nil(t, req.IsPubliclyListed)
	}))
	defer srv.Close()

	name := "renamed"
	err := NewTownsClient(srv.URL).UpdateTown("t1", UpdateTownRequest{
		Password:     "secret",
		FriendlyName: &name,
	})
	require.NoError(t, err)
}

func TestDeleteTown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/towns/t1/secret", r.URL.Path)
	}))
	defer srv.Close()

	require.NoError(t, NewTownsClient(srv.URL).DeleteTown("t1", "secret"))
}

func TestCreateConversationArea(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/towns/t1/conversationAreas", r.URL.Path)

		var req ConversationAreaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "lounge", req.Label)
		require.Equal(t, "coffee", req.Topic)
	}))
	defer srv.Close()

	err := NewTownsClient(srv.URL).CreateConversationArea("t1", ConversationAreaRequest{
		SessionToken: "tok",
		Label:        "lounge",
		Topic:        "coffee",
	})
	require.NoError(t, err)
}

func TestErrorStatusPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "wrong password", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewTownsClient(srv.URL).DeleteTown("t1", "wrong")
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}
