package main

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/rpc"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/seed"
)

func TestNewServicesRegistersEveryCommand(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg, err := config.Load("testdata/missing.env")
	require.NoError(t, err)
	svc, err := newServices(cfg, sqlx.NewDb(db, "postgres"), zap.NewNop().Sugar())
	require.NoError(t, err)

	eps := svc.registry.Endpoints()
	assert.Len(t, eps, 18+7+7+1)

	routes := map[string]string{}
	for _, ep := range eps {
		key := ep.Method + " " + ep.Path
		if prev, dup := routes[key]; dup {
			t.Errorf("%s and %s share %s", prev, ep.Cmd, key)
		}
		routes[key] = ep.Cmd
	}

	// the admin role must be able to reach every protected route
	adminGrants := map[string]bool{}
	for _, g := range seed.DefaultGrants() {
		if g.Role == seed.RoleAdmin {
			adminGrants[g.Permission+" "+g.Path] = true
		}
	}
	for _, ep := range eps {
		if ep.Public {
			continue
		}
		assert.True(t, adminGrants[ep.Method+" "+ep.Path], "admin has no grant for %s (%s %s)", ep.Cmd, ep.Method, ep.Path)
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"serve", "migrate", "seed", "call"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
		assert.NotNil(t, sub.Flags().Lookup(envFileFlag), "%s lacks --%s", name, envFileFlag)
	}
}

func TestOpenBrokerFailsWithoutRedis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	broker, rdb, err := openBroker(ctx, config.BrokerConfig{Addr: "127.0.0.1:1", Queue: "user"}, rpc.NewRegistry(), zap.NewNop().Sugar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
	assert.Nil(t, broker)
	assert.Nil(t, rdb)
}
