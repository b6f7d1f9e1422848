package protocol

import (
	"testing"

	"github.com/dkeye/Lobbyhub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLobbyDescriptorRoundTrip(t *testing.T) {
	lobbies := []domain.Lobby{
		{ID: "a1", IsVisible: true, Data: domain.Data{{Key: "mode", Value: "ranked"}}},
		{ID: "a2", IsLocked: true, IsVisible: false, Data: domain.Data{{Key: "name", Value: "Big Room"}, {Key: "map", Value: "x=1"}}},
		{ID: "a3", IsLocked: true, IsVisible: true, Data: domain.Data{}},
	}
	for _, l := range lobbies {
		t.Run(string(l.ID), func(t *testing.T) {
			cmd := EncodeLobby(l)
			cmd.Kind, cmd.ID = KindReply, "1"
			line, err := Encode(cmd)
			require.NoError(t, err)

			decoded, err := Decode(line)
			require.NoError(t, err)
			got := DecodeLobby(decoded)

			assert.Equal(t, l.ID, got.ID)
			assert.Equal(t, l.IsLocked, got.IsLocked)
			assert.Equal(t, l.IsVisible, got.IsVisible)
			assert.Equal(t, l.Data, got.Data)
		})
	}
}

func TestEncodeLobbyFlags(t *testing.T) {
	cmd := EncodeLobby(domain.Lobby{ID: "x", IsLocked: true})
	assert.Equal(t, []string{"x", "locked", "hidden"}, cmd.Params)
	assert.Nil(t, cmd.KV)
}
