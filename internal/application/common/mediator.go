package common

import (
	"context"
	"fmt"
	"reflect"
)

// Request is a command or query routed through the mediator.
type Request interface{}

// Response is whatever a handler returns for its request.
type Response interface{}

// RequestHandler executes one request kind.
type RequestHandler interface {
	Handle(ctx context.Context, request Request) (Response, error)
}

// Mediator routes each request to the single handler registered for its
// concrete type.
type Mediator interface {
	Send(ctx context.Context, request Request) (Response, error)
	Register(requestType reflect.Type, handler RequestHandler) error
}

type handlerRegistry struct {
	byType map[reflect.Type]RequestHandler
}

// NewMediator creates an empty mediator.
func NewMediator() Mediator {
	return &handlerRegistry{byType: make(map[reflect.Type]RequestHandler)}
}

// Register binds a handler to a request type. Exactly one handler per type.
func (r *handlerRegistry) Register(requestType reflect.Type, handler RequestHandler) error {
	if requestType == nil || handler == nil {
		return fmt.Errorf("mediator registration needs both a request type and a handler")
	}
	if _, taken := r.byType[requestType]; taken {
		return fmt.Errorf("request type %s already has a handler", requestType)
	}
	r.byType[requestType] = handler
	return nil
}

// Send dispatches the request to its handler.
func (r *handlerRegistry) Send(ctx context.Context, request Request) (Response, error) {
	if request == nil {
		return nil, fmt.Errorf("cannot dispatch a nil request")
	}
	requestType := reflect.TypeOf(request)
	handler, ok := r.byType[requestType]
	if !ok {
		return nil, fmt.Errorf("no handler for request type %s", requestType)
	}
	return handler.Handle(ctx, request)
}

// RegisterHandler registers a handler keyed by the request type parameter.
func RegisterHandler[T Request](m Mediator, handler RequestHandler) error {
	var zero T
	return m.Register(reflect.TypeOf(zero), handler)
}
