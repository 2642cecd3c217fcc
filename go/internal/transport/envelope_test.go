package transport

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/townlink/townlink/go/internal/models"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	req := models.TeleportRequest{
		FromPlayerID: "p1",
		ToPlayerID:   "p2",
		Time:         time.Date(2026, 8, 1, 9, 0, 0, 42, time.UTC),
	}

	env, err := NewEnvelope("teleportRequest", req)
	require.NoError(t, err)

	frame, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(frame, &decoded))
	require.Equal(t, "teleportRequest", decoded.Event)

	var got models.TeleportRequest
	require.NoError(t, decoded.Decode(&got))
	require.True(t, req.Equal(got))
}

func TestEnvelopeWithoutPayload(t *testing.T) {
	env, err := NewEnvelope("townClosing", nil)
	require.NoError(t, err)
	require.Nil(t, env.Data)

	frame, err := json.Marshal(env)
	require.NoError(t, err)
	require.JSONEq(t, `{"event":"townClosing"}`, string(frame))
}

func TestDecodeMalformedPayload(t *testing.T) {
	env := Envelope{Event: "playerMoved", Data: json.RawMessage(`{"id":`)}
	var p models.Participant
	require.Error(t, env.Decode(&p))
}
