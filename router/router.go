// Package router spreads requests for one provider across several clients,
// typically one per API key.
package router

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"story-creation-assistant/client"
)

type namedClient struct {
	client client.Client
	name   string
}

// Router hands each request to the next client in round-robin order.
type Router struct {
	clients []namedClient
	counter uint64
	logger  *log.Logger
}

// NewRouter names the clients after the provider and their position, e.g.
// "anthropic#2".
func NewRouter(provider string, clients []client.Client, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.Default()
	}

	namedClients := make([]namedClient, len(clients))
	for i, c := range clients {
		namedClients[i] = namedClient{
			client: c,
			name:   fmt.Sprintf("%s#%d", provider, i+1),
		}
	}

	return &Router{
		clients: namedClients,
		logger:  logger,
	}
}

func (r *Router) Complete(ctx context.Context, req client.Request) (*client.Response, error) {
	if len(r.clients) == 0 {
		return nil, fmt.Errorf("no clients available")
	}

	index := atomic.AddUint64(&r.counter, 1) - 1
	selected := r.clients[index%uint64(len(r.clients))]

	r.logger.Debug("Routing request", "client", selected.name, "model", req.Model)

	return selected.client.Complete(ctx, req)
}

// Len returns the number of clients behind the router.
func (r *Router) Len() int {
	return len(r.clients)
}
