package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/proxy"
)

// Config holds the connection settings shared by the uploader and the
// downloader.
type Config struct {
	// ServerURL is the base URL of the Transpo server, for example
	// "https://transpo.example".
	ServerURL string

	// Proxy is an optional SOCKS5 proxy address (host:port). When set,
	// all connections are dialed through it.
	Proxy string
}

// ErrBadServerURL indicates a server URL that is missing or not HTTP(S).
var ErrBadServerURL = errors.New("invalid server URL")

// serverURL parses and validates the configured base URL.
func (c Config) serverURL() (*url.URL, error) {
	u, err := url.Parse(strings.TrimSuffix(c.ServerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadServerURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadServerURL, c.ServerURL)
	}
	return u, nil
}

// wsScheme maps an HTTP scheme to its websocket counterpart.
func wsScheme(scheme string) string {
	if scheme == "https" {
		return "wss"
	}
	return "ws"
}

// dialer returns the websocket dialer to use, routed through the SOCKS5
// proxy when one is configured.
func (c Config) dialer() (*websocket.Dialer, error) {
	if c.Proxy == "" {
		return websocket.DefaultDialer, nil
	}
	socks, err := proxy.SOCKS5("tcp", c.Proxy, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("creating SOCKS5 dialer: %w", err)
	}
	return &websocket.Dialer{
		NetDial:          socks.Dial,
		HandshakeTimeout: 45 * time.Second,
	}, nil
}

// httpClient returns the HTTP client to use, routed through the SOCKS5
// proxy when one is configured.
func (c Config) httpClient() (*http.Client, error) {
	if c.Proxy == "" {
		return http.DefaultClient, nil
	}
	socks, err := proxy.SOCKS5("tcp", c.Proxy, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("creating SOCKS5 dialer: %w", err)
	}
	return &http.Client{
		Transport: &http.Transport{Dial: socks.Dial},
	}, nil
}

// ServerError is the single-byte error code a Transpo server sends over
// the upload socket, either in place of the upload ID or mid-transfer when
// the upload is rejected.
type ServerError uint8

const (
	ServerErrInvalidParams ServerError = iota
	ServerErrTooLarge
	ServerErrStorageFull
	ServerErrQuotaExceeded
	ServerErrInternal
)

func (e ServerError) Error() string {
	switch e {
	case ServerErrInvalidParams:
		return "server rejected the upload parameters"
	case ServerErrTooLarge:
		return "upload exceeds the server's size limit"
	case ServerErrStorageFull:
		return "server storage is full"
	case ServerErrQuotaExceeded:
		return "server quota exceeded"
	case ServerErrInternal:
		return "server internal error"
	default:
		return fmt.Sprintf("server error code %d", uint8(e))
	}
}
