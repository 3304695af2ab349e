package rpc

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
)

type greetReq struct {
	Name string `json:"name" validate:"required"`
}

func testRegistry(extra ...Endpoint) *Registry {
	reg := NewRegistry()
	reg.Register(
		Bind("test.greet", http.MethodPost, "/greet", func(_ context.Context, in *greetReq) (map[string]string, error) {
			return map[string]string{"hello": in.Name}, nil
		}),
		Bind("test.boom", http.MethodPost, "/boom", func(context.Context, *greetReq) (any, error) {
			return nil, errors.New("connection reset")
		}),
	)
	reg.Register(extra...)
	return reg
}

func TestServer_Handle(t *testing.T) {
	cfg := ServerConfig{Queue: "user", ReplyTTL: 30 * time.Second}

	t.Run("replies with data", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		srv := NewServer(rdb, testRegistry(), cfg, nil)
		mock.ExpectLPush("user:reply:r1", `{"id":"r1","data":{"hello":"bob"}}`).SetVal(1)
		mock.ExpectExpire("user:reply:r1", 30*time.Second).SetVal(true)

		srv.handle(context.Background(), `{"id":"r1","cmd":"test.greet","payload":{"name":"bob"},"replyTo":"user:reply:r1"}`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("validation failure is a 400", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		srv := NewServer(rdb, testRegistry(), cfg, nil)
		mock.ExpectLPush("user:reply:r2", `{"id":"r2","err":{"code":400,"error":"name failed on the 'required' tag"}}`).SetVal(1)
		mock.ExpectExpire("user:reply:r2", 30*time.Second).SetVal(true)

		srv.handle(context.Background(), `{"id":"r2","cmd":"test.greet","payload":{},"replyTo":"user:reply:r2"}`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown failure is reduced and reported", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		srv := NewServer(rdb, testRegistry(), cfg, nil)
		var reported error
		srv.ReportError = func(_ context.Context, err error) { reported = err }
		mock.ExpectLPush("user:reply:r3", `{"id":"r3","err":{"code":500,"error":"Internal server error"}}`).SetVal(1)
		mock.ExpectExpire("user:reply:r3", 30*time.Second).SetVal(true)

		srv.handle(context.Background(), `{"id":"r3","cmd":"test.boom","payload":{"name":"x"},"replyTo":"user:reply:r3"}`)
		assert.EqualError(t, reported, "connection reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown command", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		srv := NewServer(rdb, testRegistry(), cfg, nil)
		mock.ExpectLPush("user:reply:r4", `{"id":"r4","err":{"code":404,"error":"Unknown command test.nope"}}`).SetVal(1)
		mock.ExpectExpire("user:reply:r4", 30*time.Second).SetVal(true)

		srv.handle(context.Background(), `{"id":"r4","cmd":"test.nope","replyTo":"user:reply:r4"}`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no replyTo and malformed input push nothing", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		srv := NewServer(rdb, testRegistry(), cfg, nil)

		srv.handle(context.Background(), `{"id":"r5","cmd":"test.greet","payload":{"name":"bob"}}`)
		srv.handle(context.Background(), `not json`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := testRegistry(Bind("test.stop", http.MethodPost, "/stop", func(context.Context, *struct{}) (bool, error) {
		cancel()
		return true, nil
	}))
	srv := NewServer(rdb, reg, ServerConfig{Queue: "user", Workers: 1, PollWait: time.Second, ReplyTTL: 10 * time.Second}, nil)

	mock.ExpectBRPop(time.Second, "user").SetVal([]string{"user", `{"id":"s1","cmd":"test.stop","replyTo":"user:reply:s1"}`})
	mock.ExpectLPush("user:reply:s1", `{"id":"s1","data":true}`).SetVal(1)
	mock.ExpectExpire("user:reply:s1", 10*time.Second).SetVal(true)

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_Call(t *testing.T) {
	ctx := context.Background()
	newClient := func(t *testing.T) (*Client, redismock.ClientMock) {
		rdb, mock := redismock.NewClientMock()
		c := NewClient(rdb, "user", time.Second)
		c.newID = func() string { return "abc" }
		return c, mock
	}
	const sent = `{"id":"abc","cmd":"user.findOne","payload":{"id":42},"replyTo":"user:reply:abc"}`

	t.Run("decodes data", func(t *testing.T) {
		c, mock := newClient(t)
		mock.ExpectLPush("user", sent).SetVal(1)
		mock.ExpectBRPop(time.Second, "user:reply:abc").
			SetVal([]string{"user:reply:abc", `{"id":"abc","data":{"id":42,"fullName":"Alice"}}`})

		var out struct {
			ID       int64  `json:"id"`
			FullName string `json:"fullName"`
		}
		require.NoError(t, c.Call(ctx, "user.findOne", map[string]int{"id": 42}, &out))
		assert.Equal(t, "Alice", out.FullName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns the remote error", func(t *testing.T) {
		c, mock := newClient(t)
		mock.ExpectLPush("user", sent).SetVal(1)
		mock.ExpectBRPop(time.Second, "user:reply:abc").
			SetVal([]string{"user:reply:abc", `{"id":"abc","err":{"code":404,"error":"User is not found"}}`})

		err := c.Call(ctx, "user.findOne", map[string]int{"id": 42}, nil)
		assert.EqualError(t, err, "User is not found")
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	t.Run("times out", func(t *testing.T) {
		c, mock := newClient(t)
		mock.ExpectLPush("user", sent).SetVal(1)
		mock.ExpectBRPop(time.Second, "user:reply:abc").RedisNil()

		err := c.Call(ctx, "user.findOne", map[string]int{"id": 42}, nil)
		assert.ErrorIs(t, err, ErrReplyTimeout)
	})

	t.Run("mismatched reply id", func(t *testing.T) {
		c, mock := newClient(t)
		mock.ExpectLPush("user", sent).SetVal(1)
		mock.ExpectBRPop(time.Second, "user:reply:abc").
			SetVal([]string{"user:reply:abc", `{"id":"zzz","data":{}}`})

		assert.Error(t, c.Call(ctx, "user.findOne", map[string]int{"id": 42}, nil))
	})
}
