package session

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDirect_SubstitutesPaddingAndTags(t *testing.T) {
	// base64("\x01\x02") == "AQI=" → padding becomes "*".
	token := EncodeDirect([]byte{0x01, 0x02})
	assert.Equal(t, "CYPHER-X:~AQI*", token)
}

func TestEncodeDirect_RoundTrip(t *testing.T) {
	raw := []byte(`{"registration_id":1234,"registered":true}`)
	token := EncodeDirect(raw)

	decoded, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestEncodeChunked_RoundTrip(t *testing.T) {
	raw := make([]byte, 300)
	for i := range raw {
		raw[i] = byte(i % 251)
	}

	token := EncodeChunked(raw)
	decoded, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestEncodeChunked_ChunkLengthsWithinBounds(t *testing.T) {
	raw := make([]byte, 600)
	token := EncodeChunked(raw)

	payload, ok := strings.CutPrefix(token, "CYPHER-X:~")
	require.True(t, ok)

	chunks := strings.Split(payload, "*")
	for i, chunk := range chunks {
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, len(chunk), 10)
			assert.Less(t, len(chunk), 30)
		} else {
			// The final run is whatever remains.
			assert.LessOrEqual(t, len(chunk), 29)
		}
	}
}

func TestEncodeMessage_IsPlainBase64(t *testing.T) {
	raw := []byte{0x01, 0x02}
	encoded := EncodeMessage(raw)
	assert.Equal(t, "AQI=", encoded)

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestDecodeToken_RejectsMissingTag(t *testing.T) {
	_, err := DecodeToken("AQI*")
	assert.Error(t, err)
}

func TestSchemeValid(t *testing.T) {
	assert.True(t, SchemeDirect.Valid())
	assert.True(t, SchemeChunked.Valid())
	assert.True(t, SchemeMessage.Valid())
	assert.False(t, Scheme("carrier-pigeon").Valid())
}
