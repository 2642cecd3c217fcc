package main

import (
	"fmt"
	"net/http"

	"github.com/townlink/townlink/go/internal/harness"
	"github.com/townlink/townlink/go/internal/models"
)

func setupServer(config *Config) (*harness.Server, *http.Server) {
	town := harness.New(harness.Options{
		FriendlyName:     config.Town.FriendlyName,
		IsPubliclyListed: config.Town.IsPubliclyListed,
		Interactables: []models.Interactable{
			{ID: "lounge", Type: models.InteractableConversationArea},
			{ID: "cinema", Type: models.InteractableViewingArea},
		},
	})

	return town, &http.Server{
		Addr:    fmt.Sprintf(":%s", getEnv("PORT", "8080")),
		Handler: town.Handler(),
	}
}
