// Package websocket pushes readings to websocket clients.
package websocket

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/maxsonar.go/pkg/framework"
	"github.com/robotalks/maxsonar.go/pkg/reading"
)

const (
	// DefaultPath is where the feed is served.
	DefaultPath = "/readings"

	clientQueueSize = 8
)

// Feed broadcasts readings to all connected clients.
type Feed struct {
	Format reading.Format

	lock    sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	msgs chan []byte
}

// NewFeed creates a Feed.
func NewFeed(format reading.Format) *Feed {
	return &Feed{Format: format, clients: make(map[*client]struct{})}
}

// Handler returns the http.Handler accepting websocket clients.
func (f *Feed) Handler() http.Handler {
	return websocket.Handler(f.serve)
}

// Clients returns the number of connected clients.
func (f *Feed) Clients() int {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return len(f.clients)
}

// Publish implements publish.Publisher.
// A client not keeping up misses the reading.
func (f *Feed) Publish(ctx context.Context, r *reading.Reading) error {
	data, err := f.format().Encode(r)
	if err != nil {
		return err
	}
	f.lock.RLock()
	defer f.lock.RUnlock()
	for c := range f.clients {
		select {
		case c.msgs <- data:
		default:
			glog.V(1).Infof("websocket %s: client slow, reading dropped", c.conn.Request().RemoteAddr)
		}
	}
	return nil
}

// Close disconnects all clients.
func (f *Feed) Close() error {
	f.lock.Lock()
	clients := f.clients
	f.clients = make(map[*client]struct{})
	f.lock.Unlock()
	for c := range clients {
		c.conn.Close()
	}
	return nil
}

func (f *Feed) format() reading.Format {
	if f.Format == "" {
		return reading.FormatJSON
	}
	return f.Format
}

func (f *Feed) serve(conn *websocket.Conn) {
	c := &client{conn: conn, msgs: make(chan []byte, clientQueueSize)}
	f.lock.Lock()
	if f.clients == nil {
		f.clients = make(map[*client]struct{})
	}
	f.clients[c] = struct{}{}
	f.lock.Unlock()

	addr := conn.Request().RemoteAddr
	glog.Infof("websocket %s connected", addr)
	defer func() {
		f.lock.Lock()
		delete(f.clients, c)
		f.lock.Unlock()
		glog.Infof("websocket %s disconnected", addr)
	}()

	// Incoming data is ignored, reading only detects disconnection.
	closed := make(chan struct{})
	go func() {
		io.Copy(ioutil.Discard, conn)
		close(closed)
	}()

	binary := f.format().Binary()
	for {
		select {
		case <-closed:
			return
		case data := <-c.msgs:
			var err error
			if binary {
				err = websocket.Message.Send(conn, data)
			} else {
				err = websocket.Message.Send(conn, string(data))
			}
			if err != nil {
				glog.Warningf("websocket %s send error: %v", addr, err)
				return
			}
		}
	}
}

// Server serves a Feed over HTTP.
type Server struct {
	Addr string
	Path string
	Feed *Feed
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	path := s.Path
	if path == "" {
		path = DefaultPath
	}
	mux := http.NewServeMux()
	mux.Handle(path, s.Feed.Handler())
	srv := &http.Server{Addr: s.Addr, Handler: mux}
	glog.Infof("websocket feed on %s%s", s.Addr, path)
	err := framework.RunWithContextCancel(ctx, func() {
		srv.Shutdown(context.Background())
		s.Feed.Close()
	}, srv.ListenAndServe)
	if err == http.ErrServerClosed {
		err = nil
	}
	return err
}
