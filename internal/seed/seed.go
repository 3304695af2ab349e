// Package seed creates the built-in roles and their grants. Running it again
// changes nothing.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	rolerepo "github.com/ovaphlow/pitchfork/service-user-go/internal/role/repo"
	grantrepo "github.com/ovaphlow/pitchfork/service-user-go/internal/rolepermission/repo"
)

// Result counts the rows a run created.
type Result struct {
	Roles  int
	Grants int
}

type Seeder struct {
	roles  *rolerepo.RoleRepo
	grants *grantrepo.RolePermissionRepo
	logger *zap.SugaredLogger

	roleSeeds  []RoleSeed
	grantSeeds []GrantSeed
}

func New(roles *rolerepo.RoleRepo, grants *grantrepo.RolePermissionRepo, logger *zap.SugaredLogger) *Seeder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Seeder{
		roles:      roles,
		grants:     grants,
		logger:     logger,
		roleSeeds:  DefaultRoles,
		grantSeeds: DefaultGrants(),
	}
}

func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result
	for _, r := range s.roleSeeds {
		created, err := s.roles.InsertWithID(ctx, r.ID, r.Name)
		if err != nil {
			return res, fmt.Errorf("seed role %s: %w", r.Name, err)
		}
		if created {
			res.Roles++
			s.logger.Infow("role seeded", "id", r.ID, "name", r.Name)
		}
	}

	roleIDs := map[string]int64{}
	for _, g := range s.grantSeeds {
		id, ok := roleIDs[g.Role]
		if !ok {
			role, err := s.roles.GetByName(ctx, g.Role)
			if errors.Is(err, sql.ErrNoRows) {
				s.logger.Warnw("grant skipped, role missing", "role", g.Role, "path", g.Path, "permission", g.Permission)
				continue
			}
			if err != nil {
				return res, fmt.Errorf("find role %s: %w", g.Role, err)
			}
			id = role.ID
			roleIDs[g.Role] = id
		}
		exists, err := s.grants.Exists(ctx, id, g.Path, g.Permission)
		if err != nil {
			return res, fmt.Errorf("check grant %s %s: %w", g.Permission, g.Path, err)
		}
		if exists {
			continue
		}
		if _, err := s.grants.Create(ctx, id, g.Permission, g.Path); err != nil {
			return res, fmt.Errorf("seed grant %s %s: %w", g.Permission, g.Path, err)
		}
		res.Grants++
		s.logger.Debugw("grant seeded", "role", g.Role, "path", g.Path, "permission", g.Permission)
	}
	s.logger.Infow("seed complete", "roles_created", res.Roles, "grants_created", res.Grants)
	return res, nil
}
