package notify

import (
	"context"
	"sync"
)

// Transport delivers a claimed job over one concrete channel. It returns the
// provider message id on success. Failures should be wrapped with Transient
// or Permanent so the dispatcher can decide between retry and terminal
// failure; unwrapped errors are retried.
type Transport interface {
	Method() DeliveryMethod
	Send(ctx context.Context, job Job) (messageID string, err error)
}

// TransportRegistry routes jobs to the transport for their delivery method.
type TransportRegistry struct {
	mu         sync.RWMutex
	transports map[DeliveryMethod]Transport
}

// NewTransportRegistry creates a registry with the given transports.
func NewTransportRegistry(transports ...Transport) *TransportRegistry {
	r := &TransportRegistry{transports: make(map[DeliveryMethod]Transport)}
	for _, t := range transports {
		r.Register(t)
	}
	return r
}

// Register adds or replaces the transport for its delivery method.
func (r *TransportRegistry) Register(t Transport) {
	if t == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transports[t.Method()] = t
}

// Get returns the transport for a delivery method, or ErrNoTransport.
func (r *TransportRegistry) Get(method DeliveryMethod) (Transport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.transports[method]
	if !ok {
		return nil, ErrNoTransport
	}
	return t, nil
}
