package loopback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherx/pairgate/pkg/credstore"
	"github.com/cypherx/pairgate/pkg/protocol"
)

func testCreds(t *testing.T) *credstore.Creds {
	t.Helper()
	creds, err := credstore.NewCreds()
	require.NoError(t, err)
	return creds
}

func waitFor(t *testing.T, events <-chan protocol.LifecycleEvent, state protocol.State) protocol.LifecycleEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event stream closed while waiting for %v", state)
			}
			if ev.State == state {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v", state)
		}
	}
}

func TestDial_RegisteredCredentialsOpenDirectly(t *testing.T) {
	dialer := NewDialer(Config{AutoPair: true, OpenDelay: 10 * time.Millisecond})
	creds := testCreds(t)
	creds.Registered = true

	client, err := dialer.Dial(context.Background(), protocol.DialOptions{Creds: creds})
	require.NoError(t, err)
	defer client.Disconnect()

	assert.True(t, client.Registered())
	waitFor(t, client.Events(), protocol.StateConnecting)
	waitFor(t, client.Events(), protocol.StateOpen)
}

func TestPairingFlow_AutoAcceptRegistersAndOpens(t *testing.T) {
	dialer := NewDialer(Config{
		AutoPair:    true,
		PairingCode: "ABCDEFGH",
		OpenDelay:   10 * time.Millisecond,
		AcceptDelay: 10 * time.Millisecond,
	})

	client, err := dialer.Dial(context.Background(), protocol.DialOptions{Creds: testCreds(t)})
	require.NoError(t, err)
	defer client.Disconnect()

	assert.False(t, client.Registered())

	var updated *credstore.Creds
	client.OnCredsUpdate(func(c *credstore.Creds) { updated = c })

	code, err := client.RequestPairingCode(context.Background(), "14155550100")
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGH", code)

	waitFor(t, client.Events(), protocol.StateOpen)
	require.NotNil(t, updated)
	assert.True(t, updated.Registered)
	assert.Equal(t, "14155550100@s.whatsapp.net", updated.Me)
}

func TestPairingFlow_HandsDownAuxiliaryKeyRecord(t *testing.T) {
	dialer := NewDialer(Config{
		AutoPair:    true,
		OpenDelay:   10 * time.Millisecond,
		AcceptDelay: 10 * time.Millisecond,
	})

	client, err := dialer.Dial(context.Background(), protocol.DialOptions{Creds: testCreds(t)})
	require.NoError(t, err)
	defer client.Disconnect()

	var (
		recordName string
		recordData []byte
	)
	client.OnKeyUpdate(func(name string, data []byte) {
		recordName = name
		recordData = data
	})

	_, err = client.RequestPairingCode(context.Background(), "14155550100")
	require.NoError(t, err)

	// The record is handed down before the connection reports open.
	waitFor(t, client.Events(), protocol.StateOpen)
	assert.Equal(t, "pre-key-1", recordName)
	assert.NotEmpty(t, recordData)
}

func TestRequestPairingCode_GeneratesRandomCode(t *testing.T) {
	dialer := NewDialer(Config{AutoPair: false})

	client, err := dialer.Dial(context.Background(), protocol.DialOptions{Creds: testCreds(t)})
	require.NoError(t, err)
	defer client.Disconnect()

	code, err := client.RequestPairingCode(context.Background(), "14155550100")
	require.NoError(t, err)
	assert.Len(t, code, 8)
}

func TestRequestPairingCode_RejectsRegisteredCredentials(t *testing.T) {
	dialer := NewDialer(Config{AutoPair: true})
	creds := testCreds(t)
	creds.Registered = true

	client, err := dialer.Dial(context.Background(), protocol.DialOptions{Creds: creds})
	require.NoError(t, err)
	defer client.Disconnect()

	_, err = client.RequestPairingCode(context.Background(), "14155550100")
	assert.Error(t, err)
}

func TestSendRecordsMessagesInOrder(t *testing.T) {
	dialer := NewDialer(Config{AutoPair: true})
	creds := testCreds(t)
	creds.Registered = true

	raw, err := dialer.Dial(context.Background(), protocol.DialOptions{Creds: creds})
	require.NoError(t, err)
	client := raw.(*client)
	defer client.Disconnect()

	ctx := context.Background()
	require.NoError(t, client.SendText(ctx, "14155550100@s.whatsapp.net", "first"))
	require.NoError(t, client.SendImage(ctx, "14155550100@s.whatsapp.net", "https://example.com/guide.png", "guide"))
	require.NoError(t, client.SendText(ctx, "14155550100@s.whatsapp.net", "second"))

	sent := client.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, "first", sent[0].Text)
	assert.Equal(t, "guide", sent[1].Caption)
	assert.Equal(t, "second", sent[2].Text)
}

func TestDisconnect_IsIdempotentAndClosesEvents(t *testing.T) {
	dialer := NewDialer(Config{AutoPair: true})

	client, err := dialer.Dial(context.Background(), protocol.DialOptions{Creds: testCreds(t)})
	require.NoError(t, err)

	client.Disconnect()
	client.Disconnect()

	// Drain: the stream must terminate.
	for range client.Events() {
	}
}

func TestDial_RequiresCredentials(t *testing.T) {
	dialer := NewDialer(Config{})
	_, err := dialer.Dial(context.Background(), protocol.DialOptions{})
	assert.Error(t, err)
}
