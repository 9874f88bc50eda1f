package stats

import (
	"net/http"

	"github.com/opsledger/opsledger/internal/auth"
	"github.com/opsledger/opsledger/internal/transport"
	"github.com/opsledger/opsledger/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.L()),
		Service:     svc,
	}
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	out, err := h.Service.Dashboard(p)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Hours(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	period := Period(r.URL.Query().Get("period"))
	if period == "" {
		period = PeriodWeek
	}

	out, err := h.Service.Hours(p, period)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, out)
}
