package web

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/soheilhy/cmux"

	"github.com/ayushshrivastv/Summer-of-Bitcoin/logging"
)

const (
	// matchTimeout bounds how long cmux waits for the first bytes of a
	// connection. Clients that stay silent or send less than an HTTP method
	// fall through to the raw listener.
	matchTimeout    = time.Second
	rawWriteTimeout = 10 * time.Second
	rawDrainTimeout = time.Second
	rawDrainLimit   = 64 << 10
)

// ListenAndServe listens on addr and calls Serve.
func ListenAndServe(ctx context.Context, addr string, p Provider) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "unable to listen on %s", addr)
	}
	return Serve(ctx, l, p)
}

// Serve splits one listener with cmux: HTTP/1 requests reach the dashboard,
// any other client gets the raw block artifact and is disconnected. It
// returns once ctx is cancelled.
func Serve(ctx context.Context, l net.Listener, p Provider) error {
	m := cmux.New(l)
	m.SetReadTimeout(matchTimeout)
	httpL := m.Match(cmux.HTTP1Fast())
	rawL := m.Match(cmux.Any())

	httpSrv := &http.Server{
		Handler:           NewDashboard(p),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 3)
	go func() { errCh <- httpSrv.Serve(httpL) }()
	go func() { errCh <- serveRaw(rawL, p) }()
	go func() { errCh <- m.Serve() }()

	logging.Infof("Web: dashboard and raw artifact listener on %s", l.Addr())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !isClosed(err) {
			l.Close()
			return errors.Wrap(err, "server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	m.Close()
	_ = l.Close()
	return nil
}

func serveRaw(l net.Listener, p Provider) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			return err
		}
		go writeRaw(conn, p)
	}
}

func writeRaw(conn net.Conn, p Provider) {
	defer conn.Close()
	_ = conn.SetWriteDeadline(time.Now().Add(rawWriteTimeout))

	if result := p.LastResult(); result == nil {
		_, _ = conn.Write([]byte("no block assembled yet\n"))
	} else if _, err := result.WriteTo(conn); err != nil {
		logging.Warnf("Web: could not send artifact to %s: %v", conn.RemoteAddr(), err)
	}
	halfClose(conn)
}

// halfClose ends our side of the stream and discards what the client still
// sends, so the final Close is not answered with a reset.
func halfClose(conn net.Conn) {
	raw := conn
	if mc, ok := conn.(*cmux.MuxConn); ok {
		raw = mc.Conn
	}
	if cw, ok := raw.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
	_ = conn.SetReadDeadline(time.Now().Add(rawDrainTimeout))
	_, _ = io.Copy(io.Discard, io.LimitReader(conn, rawDrainLimit))
}

func isClosed(err error) bool {
	return err == nil ||
		errors.Is(err, http.ErrServerClosed) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, cmux.ErrListenerClosed) ||
		errors.Is(err, cmux.ErrServerClosed)
}
