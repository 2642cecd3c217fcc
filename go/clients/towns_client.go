package clients

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// TownsClient talks to the town service's administrative REST API. Failures
// always propagate to the caller.
type TownsClient struct {
	*BaseClient
}

func NewTownsClient(baseURL string) *TownsClient {
	return &TownsClient{
		BaseClient: NewBaseClient(baseURL),
	}
}

type TownListing struct {
	TownID           string `json:"coveyTownID"`
	FriendlyName     string `json:"friendlyName"`
	CurrentOccupancy int    `json:"currentOccupancy"`
	MaximumOccupancy int    `json:"maximumOccupancy"`
}

type CreateTownRequest struct {
	FriendlyName     string `json:"friendlyName"`
	IsPubliclyListed bool   `json:"isPubliclyListed"`
}

type CreateTownResponse struct {
	TownID         string `json:"coveyTownID"`
	UpdatePassword string `json:"coveyTownPassword"`
}

type UpdateTownRequest struct {
	Password         string  `json:"coveyTownPassword"`
	FriendlyName     *string `json:"friendlyName,omitempty"`
	IsPubliclyListed *bool   `json:"isPubliclyListed,omitempty"`
}

type ConversationAreaRequest struct {
	SessionToken string `json:"sessionToken"`
	Label        string `json:"label"`
	Topic        string `json:"topic"`
}

type townsResponse struct {
	Towns []TownListing `json:"towns"`
}

// ListTowns returns the publicly listed towns.
func (c *TownsClient) ListTowns() ([]TownListing, error) {
	body, err := c.Get("/towns")
	if err != nil {
		return nil, fmt.Errorf("failed to list towns: %w", err)
	}

	var response townsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}
	return response.Towns, nil
}

// CreateTown provisions a new town and returns its id and update password.
func (c *TownsClient) CreateTown(req CreateTownRequest) (CreateTownResponse, error) {
	body, err := c.Post("/towns", req)
	if err != nil {
		return CreateTownResponse{}, fmt.Errorf("failed to create town: %w", err)
	}

	var response CreateTownResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return CreateTownResponse{}, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}
	return response, nil
}

// UpdateTown patches a town's settings; the update password must match.
func (c *TownsClient) UpdateTown(townID string, req UpdateTownRequest) error {
	if _, err := c.Patch("/towns/"+url.PathEscape(townID), req); err != nil {
		return fmt.Errorf("failed to update town %s: %w", townID, err)
	}
	return nil
}

// DeleteTown tears a town down; the update password must match.
func (c *TownsClient) DeleteTown(townID, password string) error {
	endpoint := "/towns/" + url.PathEscape(townID) + "/" + url.PathEscape(password)
	if _, err := c.Delete(endpoint); err != nil {
		return fmt.Errorf("failed to delete town %s: %w", townID, err)
	}
	return nil
}

// CreateConversationArea declares a new conversation area inside a town. The
// caller authenticates with its session token.
func (c *TownsClient) CreateConversationArea(townID string, req ConversationAreaRequest) error {
	endpoint := "/towns/" + url.PathEscape(townID) + "/conversationAreas"
	if _, err := c.Post(endpoint, req); err != nil {
		return fmt.Errorf("failed to create conversation area in town %s: %w", townID, err)
	}
	return nil
}
