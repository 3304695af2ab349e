// Package monitoring records gateway requests and lists them back.
package monitoring

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/dto"
	"github.com/ovaphlow/pitchfork/service-user-go/internal/monitoring/entity"
	logrepo "github.com/ovaphlow/pitchfork/service-user-go/internal/monitoring/repo"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/pagination"
)

// Role names that widen the role filter.
const (
	RoleUser     = "User"
	RoleOperator = "Operator"
)

// Query is the payload of monitoring.findAll.
type Query struct {
	All    bool   `json:"all"`
	Page   int    `json:"page" validate:"omitempty,gte=1"`
	Limit  int    `json:"limit" validate:"omitempty,gte=1,lte=1000"`
	Search string `json:"search" validate:"omitempty,max=255"`
	UserID int64  `json:"userId" validate:"omitempty,gt=0"`
	Role   string `json:"role" validate:"omitempty,max=100"`
}

type Service struct {
	repo   *logrepo.ApiLogRepo
	logger *zap.SugaredLogger
}

func NewService(r *logrepo.ApiLogRepo, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{repo: r, logger: logger}
}

// FindAll lists api logs newest first. All ignores every filter and returns a
// single page. An Operator sees logs of Users and Operators only.
func (s *Service) FindAll(ctx context.Context, in *Query) (dto.List[entity.ApiLog], error) {
	if in.All {
		rows, err := s.repo.FindAll(ctx)
		if err != nil {
			return dto.List[entity.ApiLog]{}, fmt.Errorf("list api logs: %w", err)
		}
		return dto.NewPage(rows, len(rows), 1), nil
	}

	f := logrepo.Filter{Search: in.Search, UserID: in.UserID}
	if in.Role == RoleOperator {
		f.Roles = []string{RoleUser, RoleOperator}
	}
	count, err := s.repo.Count(ctx, f)
	if err != nil {
		return dto.List[entity.ApiLog]{}, fmt.Errorf("count api logs: %w", err)
	}
	p := pagination.New(pagination.Params{Count: count, Page: in.Page, PerPage: in.Limit})
	rows, err := s.repo.List(ctx, f, p.Take, p.Skip)
	if err != nil {
		return dto.List[entity.ApiLog]{}, fmt.Errorf("list api logs: %w", err)
	}
	return dto.NewPage(rows, count, p.TotalPage), nil
}

// Record stores one finished request. Failures are logged, never returned:
// a broken log table must not fail the request it describes.
func (s *Service) Record(ctx context.Context, e logrepo.Entry) {
	if _, err := s.repo.Insert(ctx, e); err != nil {
		s.logger.Warnw("api log insert failed", "method", e.Method, "url", e.URL, "err", err)
	}
}
