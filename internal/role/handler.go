package role

import (
	"net/http"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/rpc"
)

// Handler exposes role commands.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) Endpoints() []rpc.Endpoint {
	return []rpc.Endpoint{
		rpc.Bind("role.create", http.MethodPost, "/role", h.svc.Create),
		rpc.Bind("role.findAll", http.MethodGet, "/role/all", h.svc.FindAll),
		rpc.Bind("role.findAllByPagination", http.MethodGet, "/role", h.svc.FindAllByPagination),
		rpc.Bind("role.findOne", http.MethodGet, "/role/by-id", h.svc.FindOne),
		rpc.Bind("role.update", http.MethodPut, "/role", h.svc.Update),
		rpc.Bind("role.delete", http.MethodDelete, "/role", h.svc.Delete),
		rpc.Bind("role.restore", http.MethodPatch, "/role", h.svc.Restore),
	}
}
