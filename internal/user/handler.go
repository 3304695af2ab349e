package user

import (
	"net/http"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/rpc"
)

// Handler exposes user commands (account lifecycle, permission check, CRUD).
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) Endpoints() []rpc.Endpoint {
	return []rpc.Endpoint{
		rpc.Bind("user.logIn", http.MethodPost, "/user/log-in", h.svc.LogIn).AsPublic(),
		rpc.Bind("user.logInClient", http.MethodPost, "/user/log-in-client", h.svc.LogInClient).AsPublic(),
		rpc.Bind("user.logInBusiness", http.MethodPost, "/user/log-in-business", h.svc.LogInBusiness).AsPublic(),
		rpc.Bind("user.createUser", http.MethodPost, "/user/register", h.svc.CreateUser).AsPublic(),
		rpc.Bind("user.verifySmsCode", http.MethodPost, "/user/verify", h.svc.VerifySmsCode).AsPublic(),
		rpc.Bind("user.resendSmsCode", http.MethodPost, "/user/resend", h.svc.ResendSmsCode).AsPublic(),
		rpc.Bind("user.checkPermission", http.MethodPost, "/user/check-permission", h.svc.CheckPermission),
		rpc.Bind("user.create", http.MethodPost, "/user", h.svc.Create),
		rpc.Bind("user.createBusinessUser", http.MethodPost, "/user/business", h.svc.CreateBusinessUser),
		rpc.Bind("user.findAll", http.MethodGet, "/user/all", h.svc.FindAll),
		rpc.Bind("user.findAllByPagination", http.MethodGet, "/user", h.svc.FindAllByPagination),
		rpc.Bind("user.findOne", http.MethodGet, "/user/by-id", h.svc.FindOne),
		rpc.Bind("user.findMe", http.MethodGet, "/user/me", h.svc.FindMe),
		rpc.Bind("user.findByNumericId", http.MethodGet, "/user/by-numeric-id", h.svc.FindByNumericID),
		rpc.Bind("user.update", http.MethodPut, "/user", h.svc.Update),
		rpc.Bind("user.updateMe", http.MethodPut, "/user/me", h.svc.UpdateMe),
		rpc.Bind("user.delete", http.MethodDelete, "/user", h.svc.Delete),
		rpc.Bind("user.restore", http.MethodPatch, "/user", h.svc.Restore),
	}
}
