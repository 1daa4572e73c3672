package tailscale

import (
	"context"
	"sync"

	"tailscale.com/client/local"
	"tailscale.com/ipn/ipnstate"
)

// NewLocalClient returns a StatusClient talking to tailscaled over its
// LocalAPI socket. An empty socketPath uses the platform default. The
// underlying client is built on first use.
func NewLocalClient(socketPath string) StatusClient {
	return &tsLocalClient{socketPath: socketPath}
}

type tsLocalClient struct {
	socketPath string
	once       sync.Once
	client     *local.Client
}

func (a *tsLocalClient) Status(ctx context.Context) (*ipnstate.Status, error) {
	a.once.Do(func() {
		a.client = &local.Client{}
		if a.socketPath != "" {
			a.client.Socket = a.socketPath
		}
	})
	return a.client.Status(ctx)
}
