// Package network lets the HTTPS port answer plain HTTP requests with a
// redirect to the same URL over HTTPS.
package network

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// tlsHandshake is the record type byte that opens every TLS connection.
const tlsHandshake = 0x16

const sniffTimeout = 10 * time.Second

// RedirectListener wraps the raw TCP listener of a TLS server. Connections
// whose first byte is not a TLS handshake are answered with a 307 redirect
// and closed.
type RedirectListener struct {
	net.Listener
}

// NewRedirectListener wraps listener. Wrap it in tls.NewListener afterwards.
func NewRedirectListener(listener net.Listener) net.Listener {
	return &RedirectListener{Listener: listener}
}

func (l *RedirectListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return &sniffConn{Conn: conn, reader: bufio.NewReader(conn)}, nil
}

// sniffConn peeks at the first byte before handing reads to the TLS layer.
type sniffConn struct {
	net.Conn
	reader *bufio.Reader

	once     sync.Once
	plainErr error
}

func (c *sniffConn) Read(buf []byte) (int, error) {
	c.once.Do(c.sniff)
	if c.plainErr != nil {
		return 0, c.plainErr
	}
	return c.reader.Read(buf)
}

func (c *sniffConn) sniff() {
	_ = c.Conn.SetReadDeadline(time.Now().Add(sniffTimeout))
	first, err := c.reader.Peek(1)
	_ = c.Conn.SetReadDeadline(time.Time{})
	if err != nil || first[0] == tlsHandshake {
		return
	}

	c.plainErr = fmt.Errorf("plain HTTP on TLS port from %s", c.RemoteAddr())
	request, err := http.ReadRequest(c.reader)
	if err != nil {
		_ = c.Conn.Close()
		return
	}
	resp := http.Response{
		StatusCode: http.StatusTemporaryRedirect,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{},
	}
	resp.Header.Set("Location", fmt.Sprintf("https://%s%s", request.Host, request.RequestURI))
	resp.Header.Set("Connection", "close")
	_ = resp.Write(c.Conn)
	_ = c.Conn.Close()
}
