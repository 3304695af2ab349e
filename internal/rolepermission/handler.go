package rolepermission

import (
	"net/http"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/rpc"
)

// Handler exposes role permission commands.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) Endpoints() []rpc.Endpoint {
	return []rpc.Endpoint{
		rpc.Bind("rolePermission.create", http.MethodPost, "/role-permission", h.svc.Create),
		rpc.Bind("rolePermission.findAll", http.MethodGet, "/role-permission/all", h.svc.FindAll),
		rpc.Bind("rolePermission.findAllByPagination", http.MethodGet, "/role-permission", h.svc.FindAllByPagination),
		rpc.Bind("rolePermission.findOne", http.MethodGet, "/role-permission/by-id", h.svc.FindOne),
		rpc.Bind("rolePermission.update", http.MethodPut, "/role-permission", h.svc.Update),
		rpc.Bind("rolePermission.delete", http.MethodDelete, "/role-permission", h.svc.Delete),
		rpc.Bind("rolePermission.restore", http.MethodPatch, "/role-permission", h.svc.Restore),
	}
}
