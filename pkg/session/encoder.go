package session

import (
	"encoding/base64"
	"fmt"
	"math/rand"
	"strings"
)

// TokenTag prefixes every directly delivered session token.
const TokenTag = "CYPHER-X"

// Scheme selects how the encoded session token is delivered to the caller.
type Scheme string

const (
	// SchemeDirect returns the token in the HTTP response body, standard
	// base64 with every "=" padding character replaced by "*".
	SchemeDirect Scheme = "direct"

	// SchemeChunked returns the token in the HTTP response body, standard
	// base64 partitioned into variable-length runs joined by "*".
	SchemeChunked Scheme = "chunked"

	// SchemeMessage delivers the token out-of-band as a protocol message
	// to the requester's own address; the HTTP response carries no token.
	SchemeMessage Scheme = "message"
)

// Valid reports whether s names a known scheme.
func (s Scheme) Valid() bool {
	switch s {
	case SchemeDirect, SchemeChunked, SchemeMessage:
		return true
	}
	return false
}

// EncodeDirect encodes raw credential bytes for in-response delivery.
//
// The "="→"*" substitution keeps the token free of characters that chat
// clients tend to mangle; DecodeToken reverses it.
func EncodeDirect(raw []byte) string {
	encoded := base64.StdEncoding.EncodeToString(raw)
	return fmt.Sprintf("%s:~%s", TokenTag, strings.ReplaceAll(encoded, "=", "*"))
}

// EncodeChunked encodes raw credential bytes as base64 partitioned into
// runs of uniformly random length in [10,30) joined by "*". Consumers strip
// the separators before decoding, so chunk boundaries carry no meaning.
func EncodeChunked(raw []byte) string {
	encoded := base64.StdEncoding.EncodeToString(raw)

	var parts []string
	for len(encoded) > 0 {
		n := chunkLen()
		if n > len(encoded) {
			n = len(encoded)
		}
		parts = append(parts, encoded[:n])
		encoded = encoded[n:]
	}
	return fmt.Sprintf("%s:~%s", TokenTag, strings.Join(parts, "*"))
}

// EncodeMessage encodes raw credential bytes for out-of-band message
// delivery: plain standard base64, no substitution, no tag.
func EncodeMessage(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeToken reverses EncodeDirect/EncodeChunked, returning the original
// credential bytes.
func DecodeToken(token string) ([]byte, error) {
	payload, ok := strings.CutPrefix(token, TokenTag+":~")
	if !ok {
		return nil, fmt.Errorf("session: token missing %q tag", TokenTag)
	}
	// Direct tokens use "*" for stripped padding, chunked tokens use it as
	// a run separator. Dropping every "*" and re-padding handles both.
	payload = strings.ReplaceAll(payload, "*", "")
	if n := len(payload) % 4; n != 0 {
		payload += strings.Repeat("=", 4-n)
	}
	return base64.StdEncoding.DecodeString(payload)
}

func chunkLen() int {
	return 10 + rand.Intn(20)
}
