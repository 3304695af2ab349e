package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
)

type meReq struct {
	ID   int64  `json:"id" validate:"required,gt=0"`
	Note string `json:"note"`
}

func (m *meReq) BindCaller(id int64) { m.ID = id }

func TestRegistry_Dispatch(t *testing.T) {
	ctx := context.Background()
	reg := testRegistry(Bind("test.me", http.MethodGet, "/me", func(_ context.Context, in *meReq) (int64, error) {
		return in.ID, nil
	}))

	t.Run("decodes and validates", func(t *testing.T) {
		out, err := reg.Dispatch(ctx, "test.greet", json.RawMessage(`{"name":"bob"}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"hello": "bob"}, out)
	})

	t.Run("invalid payload", func(t *testing.T) {
		_, err := reg.Dispatch(ctx, "test.greet", json.RawMessage(`{"name":`))
		assert.EqualError(t, err, "Invalid payload")
		assert.True(t, errors.Is(err, apperr.ErrBadRequest))
	})

	t.Run("missing payload still validates", func(t *testing.T) {
		_, err := reg.Dispatch(ctx, "test.greet", nil)
		assert.EqualError(t, err, "name failed on the 'required' tag")
	})

	t.Run("caller overrides payload id", func(t *testing.T) {
		out, err := reg.Dispatch(WithCaller(ctx, 7), "test.me", json.RawMessage(`{"id":99}`))
		require.NoError(t, err)
		assert.Equal(t, int64(7), out)
	})

	t.Run("unknown command", func(t *testing.T) {
		_, err := reg.Dispatch(ctx, "test.none", nil)
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})
}

func TestRegistry_RegisterDuplicatePanics(t *testing.T) {
	reg := testRegistry()
	assert.Panics(t, func() {
		reg.Register(Bind("test.greet", http.MethodGet, "/again", func(context.Context, *greetReq) (int, error) { return 0, nil }))
	})
	assert.Len(t, reg.Endpoints(), 2)
}

func TestEndpoint_AsPublic(t *testing.T) {
	ep := Bind("test.greet", http.MethodPost, "/greet", func(context.Context, *greetReq) (int, error) { return 0, nil })
	pub := ep.AsPublic()
	assert.False(t, ep.Public)
	assert.True(t, pub.Public)
}
