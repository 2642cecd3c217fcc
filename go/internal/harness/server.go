// Package harness implements an in-process town server: it hands each
// joining client a snapshot, relays teleport negotiation events between
// peers, and broadcasts roster and zone changes. Integration tests and the
// local dev binary run against it.
package harness

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/townlink/townlink/go/internal/models"
	"github.com/townlink/townlink/go/internal/session"
	"github.com/townlink/townlink/go/internal/transport"
)

// Options configures the scripted town.
type Options struct {
	FriendlyName     string
	IsPubliclyListed bool
	Interactables    []models.Interactable
}

// Server is the in-process town server.
type Server struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	settings models.TownSettings
	zones    []models.Interactable
	clients  map[string]*client
	order    []string
	closed   bool
}

type client struct {
	id          string
	participant models.Participant
	conn        *websocket.Conn
	send        chan transport.Envelope
	closeOnce   sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// New creates a town server ready to accept joins.
func New(opts Options) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		settings: models.TownSettings{
			FriendlyName:     opts.FriendlyName,
			IsPubliclyListed: opts.IsPubliclyListed,
		},
		zones:   append([]models.Interactable(nil), opts.Interactables...),
		clients: make(map[string]*client),
	}
}

// Handler returns the HTTP surface: the websocket join endpoint plus a town
// listing, wrapped with permissive CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/join", s.handleJoin)
	mux.HandleFunc("/towns", s.handleListing)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	listing := struct {
		FriendlyName      string `json:"friendlyName"`
		IsPubliclyListed  bool   `json:"isPubliclyListed"`
		CurrentOccupancy  int    `json:"currentOccupancy"`
		InteractableCount int    `json:"interactableCount"`
	}{
		FriendlyName:      s.settings.FriendlyName,
		IsPubliclyListed:  s.settings.IsPubliclyListed,
		CurrentOccupancy:  len(s.clients),
		InteractableCount: len(s.zones),
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(listing); err != nil {
		log.Error().Err(err).Msg("failed to write town listing")
	}
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade join request")
		return
	}

	userName := r.URL.Query().Get("userName")
	if userName == "" {
		userName = "anonymous"
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan transport.Envelope, 256),
		participant: models.Participant{
			DisplayName: userName,
			Location:    models.Location{Facing: models.DirectionFront},
		},
	}
	c.participant.ID = c.id
	snapshot := models.Snapshot{
		PlayerID:         c.id,
		FriendlyName:     s.settings.FriendlyName,
		IsPubliclyListed: s.settings.IsPubliclyListed,
		Interactables:    append([]models.Interactable(nil), s.zones...),
	}
	for _, id := range s.order {
		snapshot.Participants = append(snapshot.Participants, s.clients[id].participant)
	}
	snapshot.Participants = append(snapshot.Participants, c.participant)

	s.clients[c.id] = c
	s.order = append(s.order, c.id)
	s.mu.Unlock()

	go c.writeLoop()

	s.mu.Lock()
	s.enqueue(c, session.EventInitialize, snapshot)
	s.broadcast(c.id, session.EventPlayerJoined, c.participant)
	s.mu.Unlock()

	log.Info().Str("player_id", c.id).Str("user_name", userName).Msg("player joined town")
	s.readLoop(c)
}

func (c *client) writeLoop() {
	for env := range c.send {
		if err := c.conn.WriteJSON(env); err != nil {
			log.Debug().Err(err).Str("player_id", c.id).Msg("dropping client on write failure")
			break
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
}

func (s *Server) readLoop(c *client) {
	defer s.drop(c)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env transport.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Err(err).Str("player_id", c.id).Msg("discarding malformed client frame")
			continue
		}
		s.route(c, env)
	}
}

// route applies one client event. Teleport answers travel to the requester;
// everything else in the teleport family travels to the target.
func (s *Server) route(c *client, env transport.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch env.Event {
	case session.EventPlayerMovement:
		var loc models.Location
		if err := env.Decode(&loc); err != nil {
			return
		}
		c.participant.Location = loc
		s.broadcastAll(session.EventPlayerMoved, c.participant)

	case session.EventChatMessage:
		var msg models.ChatMessage
		if err := env.Decode(&msg); err != nil {
			return
		}
		s.broadcastAll(session.EventChatMessage, msg)

	case session.EventInteractableUpdate:
		var zone models.Interactable
		if err := env.Decode(&zone); err != nil {
			return
		}
		for i := range s.zones {
			if s.zones[i].ID == zone.ID {
				s.zones[i] = zone
				s.broadcastAll(session.EventInteractableUpdate, zone)
				return
			}
		}

	case session.EventTeleportRequest, session.EventTeleportCanceled,
		session.EventTeleportTimeout, session.EventTeleportSuccess:
		var req models.TeleportRequest
		if err := env.Decode(&req); err != nil {
			return
		}
		s.deliver(req.ToPlayerID, env.Event, req)

	case session.EventTeleportAccepted, session.EventTeleportDenied,
		session.EventTeleportFailed:
		var req models.TeleportRequest
		if err := env.Decode(&req); err != nil {
			return
		}
		s.deliver(req.FromPlayerID, env.Event, req)

	case session.EventDoNotDisturbChange:
		var state bool
		if err := env.Decode(&state); err != nil {
			return
		}
		c.participant.DoNotDisturb = state
		s.broadcast(c.id, session.EventDoNotDisturbChange,
			session.FlagChange{ParticipantID: c.id, State: state})

	case session.EventOutgoingTimerChange:
		var state *int
		if err := env.Decode(&state); err != nil {
			return
		}
		c.participant.TimerSecondsRemaining = state
		s.broadcast(c.id, session.EventOutgoingTimerChange,
			session.TimerChange{ParticipantID: c.id, State: state})

	default:
		log.Debug().Str("event", env.Event).Msg("ignoring unknown client event")
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c.id]; !ok {
		return
	}
	delete(s.clients, c.id)
	for i, id := range s.order {
		if id == c.id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	c.close()
	s.broadcastAll(session.EventPlayerDisconnect, c.participant)
	log.Info().Str("player_id", c.id).Msg("player left town")
}

// enqueue queues one envelope for a client, dropping it if the client's
// buffer is full.
func (s *Server) enqueue(c *client, event string, payload any) {
	env, err := transport.NewEnvelope(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to build envelope")
		return
	}
	select {
	case c.send <- env:
	default:
		log.Warn().Str("player_id", c.id).Str("event", event).Msg("client send buffer full; dropping event")
	}
}

func (s *Server) deliver(playerID, event string, payload any) {
	if c, ok := s.clients[playerID]; ok {
		s.enqueue(c, event, payload)
	}
}

func (s *Server) broadcast(exceptID, event string, payload any) {
	for _, id := range s.order {
		if id == exceptID {
			continue
		}
		s.enqueue(s.clients[id], event, payload)
	}
}

func (s *Server) broadcastAll(event string, payload any) {
	s.broadcast("", event, payload)
}

// UpdateSettings patches the town settings and announces the change.
func (s *Server) UpdateSettings(friendlyName *string, isPubliclyListed *bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if friendlyName != nil {
		s.settings.FriendlyName = *friendlyName
	}
	if isPubliclyListed != nil {
		s.settings.IsPubliclyListed = *isPubliclyListed
	}
	s.broadcastAll(session.EventTownSettingsUpdated, session.SettingsUpdate{
		FriendlyName:     friendlyName,
		IsPubliclyListed: isPubliclyListed,
	})
}

// Close announces the town closing and disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.broadcastAll(session.EventTownClosing, nil)
	for _, id := range s.order {
		s.clients[id].close()
	}
	s.clients = make(map[string]*client)
	s.order = nil
}

// Occupancy returns the number of connected clients.
func (s *Server) Occupancy() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
