package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/townlink/townlink/go/internal/models"
	"github.com/townlink/townlink/go/internal/session"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	config := &Config{}
	if path := getEnv("CONFIG_PATH", ""); path != "" {
		loaded, err := loadConfig(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("failed to load config")
		}
		config = loaded
	}
	if config.Town.UserName == "" {
		config.Town.UserName = getEnv("USER_NAME", "demo")
	}
	if config.Town.FriendlyName == "" {
		config.Town.FriendlyName = getEnv("TOWN_NAME", "demo town")
	}
	config.Town.URL = getEnv("TOWN_URL", config.Town.URL)

	// With no town to join, run one locally and join that.
	if config.Town.URL == "" {
		town, srv := setupServer(config)
		defer town.Close()
		go func() {
			log.Info().Str("addr", srv.Addr).Msg("local town server listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("town server failed")
			}
		}()
		config.Town.URL = fmt.Sprintf("ws://localhost:%s/join", getEnv("PORT", "8080"))
	}

	controller := session.New(session.Config{
		URL:              config.Town.URL + "?userName=" + config.Town.UserName,
		CountdownSeconds: getEnvAsInt("TELEPORT_COUNTDOWN_SECONDS", config.Teleport.CountdownSeconds),
	})
	subscribeLogging(controller)

	snapshot, err := controller.Connect(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to join town")
	}
	log.Info().
		Str("player_id", snapshot.PlayerID).
		Str("town", snapshot.FriendlyName).
		Int("participants", len(snapshot.Participants)).
		Msg("connected")

	if _, err := controller.SendChat("hello from the townlink demo client"); err != nil {
		log.Error().Err(err).Msg("failed to send greeting")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	if err := controller.Disconnect(); err != nil {
		log.Error().Err(err).Msg("disconnect failed")
	}
}

// subscribeLogging logs every notification the session emits.
func subscribeLogging(c *session.Controller) {
	events := c.Events()

	events.RosterChanged.Subscribe(func(ps []models.Participant) {
		log.Info().Int("count", len(ps)).Msg("roster changed")
	})
	events.ParticipantMoved.Subscribe(func(p models.Participant) {
		log.Debug().Str("player_id", p.ID).Float64("x", p.Location.X).Float64("y", p.Location.Y).Msg("participant moved")
	})
	events.ChatMessage.Subscribe(func(m models.ChatMessage) {
		log.Info().Str("author", m.AuthorID).Str("body", m.Body).Msg("chat")
	})
	events.SettingsUpdated.Subscribe(func(s models.TownSettings) {
		log.Info().Str("friendly_name", s.FriendlyName).Bool("public", s.IsPubliclyListed).Msg("town settings updated")
	})
	events.ZonesChanged.Subscribe(func(zs []models.Interactable) {
		log.Info().Int("count", len(zs)).Msg("conversation areas changed")
	})
	events.TeleportRequested.Subscribe(func(req models.TeleportRequest) {
		log.Info().Str("from", req.FromPlayerID).Str("to", req.ToPlayerID).Msg("teleport requested")
	})
	events.TeleportAccepted.Subscribe(func(req models.TeleportRequest) {
		log.Info().Str("to", req.ToPlayerID).Msg("teleport accepted")
	})
	events.TeleportDenied.Subscribe(func(req models.TeleportRequest) {
		log.Info().Str("to", req.ToPlayerID).Msg("teleport denied")
	})
	events.TeleportTimeout.Subscribe(func(req models.TeleportRequest) {
		log.Info().Str("to", req.ToPlayerID).Msg("teleport timed out")
	})
	events.NearbyChanged.Subscribe(func(ids []string) {
		log.Debug().Strs("player_ids", ids).Msg("nearby players changed")
	})
	events.Disconnected.Subscribe(func(struct{}) {
		log.Info().Msg("disconnected from town")
	})
}
