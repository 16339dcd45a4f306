package realtime

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
)

func recvMessage(t *testing.T, ch <-chan Message, timeout time.Duration) Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for message")
	}
	return Message{}
}

func TestHubOrderingAndReconnect(t *testing.T) {
	hub := NewHub(logger.Nop())

	a := hub.NewClient()
	hub.AddChannel(a, ChannelWorld)
	hub.Broadcast(Message{Channel: ChannelWorld, Event: EventDreamCreated})
	hub.Broadcast(Message{Channel: ChannelWorld, Event: EventDreamProcessed})
	assert.Equal(t, EventDreamCreated, recvMessage(t, a.Outbound, time.Second).Event)
	assert.Equal(t, EventDreamProcessed, recvMessage(t, a.Outbound, time.Second).Event)

	hub.CloseClient(a)
	hub.CloseClient(a)
	_, ok := <-a.Outbound
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers(ChannelWorld))

	b := hub.NewClient()
	hub.AddChannel(b, ChannelWorld)
	hub.Broadcast(Message{Channel: ChannelWorld, Event: EventLocationMerged})
	assert.Equal(t, EventLocationMerged, recvMessage(t, b.Outbound, time.Second).Event)
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(logger.Nop())
	c := hub.NewClient()
	hub.AddChannel(c, ChannelWorld)
	for i := 0; i < cap(c.Outbound)+5; i++ {
		hub.Broadcast(Message{Channel: ChannelWorld, Event: EventJobProgress})
	}
	assert.Len(t, c.Outbound, cap(c.Outbound))
	hub.Broadcast(Message{Channel: "other", Event: EventJobProgress})
}

func TestHubServeHTTPStreamsEvents(t *testing.T) {
	hub := NewHub(logger.Nop())
	client := hub.NewClient()
	hub.AddChannel(client, ChannelWorld)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeHTTP(w, r, client)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	hub.Broadcast(Message{Channel: ChannelWorld, Event: EventDreamProcessed, Data: map[string]any{"dream_id": 7}})

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: DreamProcessed", strings.TrimSpace(line))
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"dream_id":7`)
}
