package monitoring

import (
	"net/http"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/rpc"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) Endpoints() []rpc.Endpoint {
	return []rpc.Endpoint{
		rpc.Bind("monitoring.findAll", http.MethodGet, "/monitoring/all", h.svc.FindAll),
	}
}
