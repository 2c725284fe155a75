package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"sendRequest","data":{"opponentNickname":"bob"}}`))
	require.NoError(t, err)
	assert.Equal(t, MsgSendRequest, env.Type)

	var payload SendRequest
	require.NoError(t, env.Decode(&payload))
	assert.Equal(t, "bob", payload.OpponentNickname)
}

func TestDecodeEnvelopeRejectsMalformedFrame(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestDecodeEnvelopeRejectsMissingType(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"data":{}}`))
	assert.Error(t, err)
}

func TestDecodeDefaultsEmptyData(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"leaveLobby"}`))
	require.NoError(t, err)

	var payload Toggle
	assert.NoError(t, env.Decode(&payload))
	assert.False(t, payload.Enabled)
}

func TestDecodeRunsValidation(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"sendRequest","data":{}}`))
	require.NoError(t, err)

	var payload SendRequest
	err = env.Decode(&payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opponentNickname")
}

func TestDecodeValidationVariants(t *testing.T) {
	cases := []struct {
		name    string
		frame   string
		payload interface{ Validate() error }
		wantErr bool
	}{
		{"respond missing requestId", `{"type":"respondToRequest","data":{"accepted":true}}`, &RespondToRequest{}, true},
		{"confirm complete", `{"type":"finalConfirm","data":{"requestId":"abc","confirmed":true}}`, &FinalConfirm{}, false},
		{"room missing battleId", `{"type":"joinRoom","data":{}}`, &Room{}, true},
		{"reportKO missing opponent", `{"type":"reportKO","data":{"battleId":"x"}}`, &ReportKO{}, true},
		{"grid data complete", `{"type":"sendGridData","data":{"battleId":"x","gridData":[1,2]}}`, &GridData{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tc.frame))
			require.NoError(t, err)
			err = env.Decode(tc.payload)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGridDataKeepsPayloadRaw(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"sendGridData","data":{"battleId":"x","gridData":{"cells":[[0,1],[1,0]]}}}`))
	require.NoError(t, err)

	var payload GridData
	require.NoError(t, env.Decode(&payload))
	assert.JSONEq(t, `{"cells":[[0,1],[1,0]]}`, string(payload.GridData))
}
