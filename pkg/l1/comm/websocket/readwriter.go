// Package websocket carries the box byte stream over websocket
// connections.
package websocket

import (
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// DefaultPath is where the console is served.
const DefaultPath = "/console"

// Listener serves a websocket console to the box. One console is
// attached at a time, later ones wait until it disconnects.
// Output is discarded while no console is attached.
type Listener struct {
	ln      net.Listener
	server  *http.Server
	sessCh  chan *session
	closeCh chan struct{}

	closeOnce sync.Once
	lock      sync.Mutex
	current   *session
}

type session struct {
	ws     *websocket.Conn
	doneCh chan struct{}
	once   sync.Once
}

func (s *session) end() {
	s.once.Do(func() { close(s.doneCh) })
}

// Listen starts serving on addr at path.
func Listen(addr, path string) (*Listener, error) {
	if path == "" {
		path = DefaultPath
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := &Listener{
		ln:      ln,
		sessCh:  make(chan *session),
		closeCh: make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(l.serve))
	l.server = &http.Server{Handler: mux}
	go l.server.Serve(ln)
	glog.Infof("websocket console at ws://%s%s", ln.Addr(), path)
	return l, nil
}

// Addr returns the listening address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

func (l *Listener) serve(ws *websocket.Conn) {
	s := &session{ws: ws, doneCh: make(chan struct{})}
	select {
	case l.sessCh <- s:
	case <-l.closeCh:
		return
	}
	select {
	case <-s.doneCh:
	case <-l.closeCh:
	}
}

func (l *Listener) session() *session {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.current
}

func (l *Listener) attach(s *session) {
	l.lock.Lock()
	l.current = s
	l.lock.Unlock()
	glog.Infof("console attached from %s", s.ws.Request().RemoteAddr)
}

func (l *Listener) detach(s *session) {
	l.lock.Lock()
	if l.current == s {
		l.current = nil
	}
	l.lock.Unlock()
	s.end()
	glog.Infof("console detached")
}

// Read implements io.Reader. It blocks until a console is attached and
// sends something.
func (l *Listener) Read(p []byte) (int, error) {
	for {
		s := l.session()
		if s == nil {
			select {
			case s = <-l.sessCh:
				l.attach(s)
			case <-l.closeCh:
				return 0, io.EOF
			}
		}
		n, err := s.ws.Read(p)
		if n > 0 || err == nil {
			return n, nil
		}
		l.detach(s)
	}
}

// Write implements io.Writer.
func (l *Listener) Write(p []byte) (int, error) {
	s := l.session()
	if s == nil {
		return len(p), nil
	}
	if _, err := s.ws.Write(p); err != nil {
		glog.Warningf("console write error: %v", err)
		l.detach(s)
	}
	return len(p), nil
}

// Close implements io.Closer.
func (l *Listener) Close() (err error) {
	l.closeOnce.Do(func() {
		close(l.closeCh)
		err = l.server.Close()
	})
	return
}

// Dial connects to a console.
func Dial(url string) (*websocket.Conn, error) {
	return websocket.Dial(url, "", "http://localhost/")
}
