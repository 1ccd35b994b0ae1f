package router

import (
	"sync"

	"github.com/pkg/errors"
)

// Router routes the messages of a single peer by command to their
// respective input routes, and carries the messages sent to the peer on
// its outgoing route
type Router struct {
	name               string
	incomingRoutes     map[string]*Route
	incomingRoutesLock sync.RWMutex

	outgoingRoute *Route
}

// NewRouter creates a new empty router
func NewRouter(name string) *Router {
	return &Router{
		name:           name,
		incomingRoutes: make(map[string]*Route),
		outgoingRoute:  newRouteWithCapacity(name+" outgoing", DefaultMaxMessages),
	}
}

// AddIncomingRoute registers the messages of the given commands to
// be routed to a new route
func (r *Router) AddIncomingRoute(commands []string) (*Route, error) {
	route := NewRoute(r.name + " incoming")
	err := r.initializeIncomingRoute(route, commands)
	if err != nil {
		return nil, err
	}
	return route, nil
}

// AddIncomingRouteWithCapacity registers the messages of the given commands
// to be routed to a new route with a capacity of `capacity`
func (r *Router) AddIncomingRouteWithCapacity(capacity int, commands []string) (*Route, error) {
	route := newRouteWithCapacity(r.name+" incoming", capacity)
	err := r.initializeIncomingRoute(route, commands)
	if err != nil {
		return nil, err
	}
	return route, nil
}

func (r *Router) initializeIncomingRoute(route *Route, commands []string) error {
	r.incomingRoutesLock.Lock()
	defer r.incomingRoutesLock.Unlock()

	for _, command := range commands {
		if _, ok := r.incomingRoutes[command]; ok {
			return errors.Errorf("a route for '%s' already exists", command)
		}
	}
	for _, command := range commands {
		r.incomingRoutes[command] = route
	}
	return nil
}

// RemoveRoute unregisters the messages of the given commands from
// the router
func (r *Router) RemoveRoute(commands []string) error {
	r.incomingRoutesLock.Lock()
	defer r.incomingRoutesLock.Unlock()

	for _, command := range commands {
		if _, ok := r.incomingRoutes[command]; !ok {
			return errors.Errorf("a route for '%s' does not exist", command)
		}
		delete(r.incomingRoutes, command)
	}
	return nil
}

// EnqueueIncomingMessage enqueues the given message to the
// appropriate route
func (r *Router) EnqueueIncomingMessage(message *Message) error {
	route, ok := r.incomingRoute(message.Command)
	if !ok {
		return errors.Errorf("a route for '%s' does not exist", message.Command)
	}
	return route.Enqueue(message)
}

// OutgoingRoute returns the outgoing route
func (r *Router) OutgoingRoute() *Route {
	return r.outgoingRoute
}

// Close shuts down the router by closing all registered
// incoming routes and the outgoing route
func (r *Router) Close() {
	r.incomingRoutesLock.Lock()
	defer r.incomingRoutesLock.Unlock()

	incomingRoutes := make(map[*Route]struct{})
	for _, route := range r.incomingRoutes {
		incomingRoutes[route] = struct{}{}
	}
	for route := range incomingRoutes {
		route.Close()
	}
	r.outgoingRoute.Close()
}

func (r *Router) incomingRoute(command string) (*Route, bool) {
	r.incomingRoutesLock.RLock()
	defer r.incomingRoutesLock.RUnlock()

	route, ok := r.incomingRoutes[command]
	return route, ok
}
