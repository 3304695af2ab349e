package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/monitoring"
	logrepo "github.com/ovaphlow/pitchfork/service-user-go/internal/monitoring/repo"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/role"
	rolerepo "github.com/ovaphlow/pitchfork/service-user-go/internal/role/repo"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/rolepermission"
	grantrepo "github.com/ovaphlow/pitchfork/service-user-go/internal/rolepermission/repo"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/rpc"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/seed"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-user-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/utilities"
)

// bootstrap loads config and builds the logger every subcommand needs.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(rootFlags[envFileFlag].GetString())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	lg, err := utilities.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		return nil, nil, err
	}
	return cfg, lg, nil
}

type repos struct {
	roles  *rolerepo.RoleRepo
	grants *grantrepo.RolePermissionRepo
	users  *userrepo.UserRepo
	logs   *logrepo.ApiLogRepo
}

func newRepos(db *sqlx.DB) repos {
	return repos{
		roles:  rolerepo.NewRoleRepo(db),
		grants: grantrepo.NewRolePermissionRepo(db),
		users:  userrepo.NewUserRepo(db),
		logs:   logrepo.NewApiLogRepo(db),
	}
}

// migrate creates tables in foreign key order.
func (r repos) migrate(ctx context.Context) error {
	steps := []struct {
		table  string
		ensure func(context.Context) error
	}{
		{"roles", r.roles.EnsureTable},
		{"role_permissions", r.grants.EnsureTable},
		{"users", r.users.EnsureTable},
		{"api_logs", r.logs.EnsureTable},
	}
	for _, s := range steps {
		if err := s.ensure(ctx); err != nil {
			return fmt.Errorf("ensure %s: %w", s.table, err)
		}
	}
	return nil
}

func (r repos) seeder(logger *zap.SugaredLogger) *seed.Seeder {
	return seed.New(r.roles, r.grants, logger)
}

// services is the wired application.
type services struct {
	users      *user.Service
	monitoring *monitoring.Service
	tokens     *token.Issuer
	registry   *rpc.Registry
}

func newServices(cfg *config.Config, db *sqlx.DB, logger *zap.SugaredLogger) (*services, error) {
	r := newRepos(db)
	ids, err := utilities.NewIDGenerator(cfg.Auth.SnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}
	tokens := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL, nil)

	roleSvc := role.NewService(r.roles, logger.Named("role"))
	grantSvc := rolepermission.NewService(r.grants, roleSvc, logger.Named("role-permission"))
	userSvc := user.NewService(user.Deps{
		Repo:   r.users,
		Roles:  roleSvc,
		Grants: r.grants,
		Hasher: user.BcryptHasher{Cost: cfg.Auth.BcryptCost},
		IDs:    ids,
		Tokens: tokens,
		Logger: logger.Named("user"),
	}, user.Options{
		UserRoleID:     cfg.Auth.UserRoleID,
		BusinessRoleID: cfg.Auth.BusinessRoleID,
		OTPWindow:      cfg.Auth.OTPWindow,
		MaxAttempts:    cfg.Auth.MaxAttempts,
	})
	monSvc := monitoring.NewService(r.logs, logger.Named("monitoring"))

	reg := rpc.NewRegistry()
	reg.Register(user.NewHandler(userSvc).Endpoints()...)
	reg.Register(role.NewHandler(roleSvc).Endpoints()...)
	reg.Register(rolepermission.NewHandler(grantSvc).Endpoints()...)
	reg.Register(monitoring.NewHandler(monSvc).Endpoints()...)

	return &services{users: userSvc, monitoring: monSvc, tokens: tokens, registry: reg}, nil
}

func connect(cfg *config.Config) (*sqlx.DB, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	return db, nil
}
