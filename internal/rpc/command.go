// Package rpc holds the command table shared by the HTTP gateway and the
// redis request/reply broker, plus the broker server and client.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
)

// Endpoint binds one command name to an HTTP verb and path.
type Endpoint struct {
	Cmd    string
	Method string
	Path   string
	// Public endpoints skip the gateway permission check.
	Public bool

	newReq func() any
	invoke func(ctx context.Context, req any) (any, error)
}

// Bind builds an endpoint around a typed handler. The payload is decoded into
// a fresh *T and validated before fn runs.
func Bind[T any, R any](cmd, method, path string, fn func(context.Context, *T) (R, error)) Endpoint {
	return Endpoint{
		Cmd:    cmd,
		Method: method,
		Path:   path,
		newReq: func() any { return new(T) },
		invoke: func(ctx context.Context, req any) (any, error) {
			return fn(ctx, req.(*T))
		},
	}
}

// AsPublic marks the endpoint as reachable without a bearer token.
func (e Endpoint) AsPublic() Endpoint {
	e.Public = true
	return e
}

// CallerBinder is implemented by payloads that address the calling user.
type CallerBinder interface {
	BindCaller(userID int64)
}

type callerKey struct{}

// WithCaller records the authenticated user id on ctx.
func WithCaller(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, callerKey{}, userID)
}

// CallerFrom returns the user id stored by WithCaller.
func CallerFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(callerKey{}).(int64)
	return id, ok
}

// Registry is the command table.
type Registry struct {
	validate  *validator.Validate
	byCmd     map[string]Endpoint
	endpoints []Endpoint
}

func NewRegistry() *Registry {
	v := validator.New()
	// report json field names instead of Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Registry{validate: v, byCmd: map[string]Endpoint{}}
}

// Register adds endpoints. Registering the same command twice panics; it is a wiring bug.
func (r *Registry) Register(eps ...Endpoint) {
	for _, ep := range eps {
		if _, dup := r.byCmd[ep.Cmd]; dup {
			panic(fmt.Sprintf("rpc: duplicate command %q", ep.Cmd))
		}
		r.byCmd[ep.Cmd] = ep
		r.endpoints = append(r.endpoints, ep)
	}
}

// Endpoints returns the endpoints in registration order.
func (r *Registry) Endpoints() []Endpoint {
	out := make([]Endpoint, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// Lookup finds an endpoint by command name.
func (r *Registry) Lookup(cmd string) (Endpoint, bool) {
	ep, ok := r.byCmd[cmd]
	return ep, ok
}

// Invoke decodes the payload with decode, validates it and calls the handler.
// A caller id on ctx overrides the payload of CallerBinder requests.
func (r *Registry) Invoke(ctx context.Context, ep Endpoint, decode func(dst any) error) (any, error) {
	req := ep.newReq()
	if decode != nil {
		if err := decode(req); err != nil {
			return nil, apperr.BadRequest("Invalid payload")
		}
	}
	if id, ok := CallerFrom(ctx); ok {
		if b, ok := req.(CallerBinder); ok {
			b.BindCaller(id)
		}
	}
	if err := r.validate.StructCtx(ctx, req); err != nil {
		return nil, validationError(err)
	}
	return ep.invoke(ctx, req)
}

// Dispatch runs a command with a JSON payload, as received from the broker.
func (r *Registry) Dispatch(ctx context.Context, cmd string, payload json.RawMessage) (any, error) {
	ep, ok := r.Lookup(cmd)
	if !ok {
		return nil, apperr.NotFound(fmt.Sprintf("Unknown command %s", cmd))
	}
	return r.Invoke(ctx, ep, func(dst any) error {
		if len(payload) == 0 || string(payload) == "null" {
			return nil
		}
		return json.Unmarshal(payload, dst)
	})
}

func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return apperr.BadRequest("Validation failed")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on the '%s' tag", fe.Field(), fe.Tag()))
	}
	return apperr.BadRequest(strings.Join(msgs, "; "))
}
