// ABOUTME: SSH+SOCKS5 tunnelling for backends only reachable through a jumpbox
// ABOUTME: Parses ssh+socks5://user@host:port?private-key=/path URLs

package client

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cloudfoundry/socks5-proxy"
)

// DialContextFunc matches http.Transport.DialContext
type DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// WithProxy routes requests through an SSH+SOCKS5 tunnel. An empty value is a
// no-op. An unusable proxy URL is logged and requests go direct.
func WithProxy(allProxy string) Option {
	return func(c *Client) {
		if allProxy == "" {
			return
		}
		dial, err := socks5DialContext(allProxy)
		if err != nil {
			slog.Error("Ignoring proxy configuration", "error", err)
			return
		}

		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = dial
		c.httpClient.Transport = transport
	}
}

// socks5DialContext builds a dial function that opens the SSH tunnel on first use.
func socks5DialContext(allProxy string) (DialContextFunc, error) {
	proxyURL, err := url.Parse(strings.TrimPrefix(allProxy, "ssh+"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse proxy URL: %w", err)
	}
	if proxyURL.Host == "" {
		return nil, fmt.Errorf("proxy URL %q has no host", allProxy)
	}

	username := ""
	if proxyURL.User != nil {
		username = proxyURL.User.Username()
	}

	keyPath, err := validateKeyPath(proxyURL.Query().Get("private-key"))
	if err != nil {
		return nil, err
	}
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH private key: %w", err)
	}

	socks5Proxy := proxy.NewSocks5Proxy(proxy.NewHostKey(), log.Default(), 1*time.Minute)

	var (
		dialer proxy.DialFunc
		mut    sync.RWMutex
	)

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		mut.RLock()
		haveDialer := dialer != nil
		mut.RUnlock()

		if haveDialer {
			return dialer(network, address)
		}

		mut.Lock()
		defer mut.Unlock()
		if dialer == nil {
			d, err := socks5Proxy.Dialer(username, string(key), proxyURL.Host)
			if err != nil {
				return nil, fmt.Errorf("error creating SOCKS5 dialer: %w", err)
			}
			dialer = d
		}
		return dialer(network, address)
	}, nil
}

// validateKeyPath requires an existing regular file and rejects relative
// paths that climb out of the working directory.
func validateKeyPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("proxy URL missing required 'private-key' query param")
	}
	if !filepath.IsAbs(path) && strings.HasPrefix(filepath.Clean(path), "..") {
		return "", fmt.Errorf("private-key path %q escapes the working directory", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("private-key: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("private-key %q is not a regular file", path)
	}
	return filepath.Clean(path), nil
}
