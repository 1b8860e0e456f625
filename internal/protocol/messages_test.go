package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

func TestDecodeInboundTypes(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"audio","data":"aGVsbG8="}`))
	require.NoError(t, err)
	assert.Equal(t, TypeAudio, msg.Type)
	assert.Equal(t, "aGVsbG8=", msg.Data)

	msg, err = Decode([]byte(`{"type":"text_input","text":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeTextInput, msg.Type)
	assert.Equal(t, "hi", msg.Text)

	msg, err = Decode([]byte(`{"type":"interrupt"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeInterrupt, msg.Type)

	msg, err = Decode([]byte(`{"type":"toggle_mute"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeToggleMute, msg.Type)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"selfdestruct"}`))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"type":`))
	assert.ErrorIs(t, err, domain.ErrValidation)

	var syntaxErr *json.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr), "syntax errors must stay detectable for connection closing")
}

func TestOutboundFramesMarshal(t *testing.T) {
	data, err := json.Marshal(NewConnected("sess-1", "Isha"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"connected"`)
	assert.Contains(t, string(data), `"session_id":"sess-1"`)

	data, err = json.Marshal(NewError("boom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"error"`)
}
