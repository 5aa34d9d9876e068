package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/maxsonar.go/pkg/reading"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	conn, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+DefaultPath, "", srv.URL)
	require.NoError(t, err)
	return conn
}

func TestFeed(t *testing.T) {
	testCases := []reading.Format{reading.FormatJSON, reading.FormatProto}
	for _, format := range testCases {
		t.Run(string(format), func(t *testing.T) {
			feed := NewFeed(format)
			srv := httptest.NewServer(feed.Handler())
			defer srv.Close()

			conn := dial(t, srv)
			defer conn.Close()
			require.Eventually(t, func() bool { return feed.Clients() == 1 }, time.Second, 10*time.Millisecond)

			r := &reading.Reading{SensorID: "tank", Distance: 45, Unit: "cm", At: time.Unix(10, 0).UTC()}
			require.NoError(t, feed.Publish(context.Background(), r))

			var data []byte
			conn.SetReadDeadline(time.Now().Add(time.Second))
			require.NoError(t, websocket.Message.Receive(conn, &data))
			decoded, err := format.Decode(data)
			require.NoError(t, err)
			require.Equal(t, uint16(45), decoded.Distance)
			require.Equal(t, "tank", decoded.SensorID)

			conn.Close()
			require.Eventually(t, func() bool { return feed.Clients() == 0 }, time.Second, 10*time.Millisecond)
		})
	}
}

func TestFeedClose(t *testing.T) {
	feed := NewFeed("")
	srv := httptest.NewServer(feed.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return feed.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, feed.Close())
	var msg string
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.Error(t, websocket.Message.Receive(conn, &msg))
}

func TestServerRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{Addr: "127.0.0.1:0", Feed: NewFeed(reading.FormatJSON)}
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("server not stopped")
	}
}
