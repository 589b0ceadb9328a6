// Package dashboard serves the role-gated pages under /dashboard.
package dashboard

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fulfilhub/dashboard/internal/platform/httpx"
	"github.com/fulfilhub/dashboard/internal/rbac"
	"github.com/fulfilhub/dashboard/internal/resources"
	"github.com/fulfilhub/dashboard/internal/shared"
	"github.com/fulfilhub/dashboard/internal/view"
)

// Handler renders dashboard pages over the resource service.
type Handler struct {
	logger    *slog.Logger
	service   *resources.Service
	policy    *rbac.Policy
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *resources.Service, policy *rbac.Policy, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, policy: policy, templates: templates, csrf: csrf}
}

// MountRoutes registers dashboard routes; mount under /dashboard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.home)

	r.Get("/stocks/history", h.stockHistory)
	r.Post("/stocks/movement", h.moveStock)
	r.Post("/shippings/shipments", h.createShipment)

	r.Route("/{resource}", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/new", h.newForm)
		r.Get("/export", h.export)
		r.Post("/import", h.importFile)
		r.Get("/{id}", h.detail)
		r.Post("/{id}", h.update)
		r.Post("/{id}/delete", h.remove)
		r.Post("/{id}/status", h.advanceStatus)
	})
}

// resource resolves the {resource} URL parameter, rendering 404 when unknown.
func (h *Handler) resource(w http.ResponseWriter, r *http.Request) (resources.Resource, bool) {
	res, err := h.service.Resource(chi.URLParam(r, "resource"))
	if err != nil {
		h.notFound(w, r)
		return resources.Resource{}, false
	}
	return res, true
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	h.render(w, r, http.StatusNotFound, "pages/error.html", "Tidak ditemukan", "Halaman tidak ditemukan")
}

func (h *Handler) nav(role shared.Role) []view.NavItem {
	var items []view.NavItem
	for _, res := range h.service.Catalog().All() {
		if h.policy.AllowsResource(role, res.Name) {
			items = append(items, view.NavItem{Title: res.Title, Path: res.Route()})
		}
	}
	return items
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, template, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, err := h.csrf.EnsureToken(w, r, sess)
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
	}
	current := r.Header.Get(rbac.CurrentPathHeader)
	if current == "" {
		current = r.URL.Path
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       shared.PopFlash(w, r),
		CurrentPath: current,
		Session:     sess,
		Nav:         h.nav(sess.Role),
		Data:        data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", template))
	}
}

// finish completes a write: JSON clients get the notice or a problem document,
// browsers get the notice as a flash and a 303 to location.
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, location string, notice shared.FlashMessage, err error) {
	if err != nil {
		h.logWriteError(r, err)
	}
	if httpx.WantsJSON(r) {
		switch {
		case err == nil:
			httpx.JSON(w, http.StatusOK, notice)
		case isInputError(err):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", notice.Message)
		default:
			httpx.RespondError(w, err)
		}
		return
	}
	if notice.Message != "" {
		shared.SetFlash(w, notice)
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (h *Handler) logWriteError(r *http.Request, err error) {
	sess := shared.SessionFromContext(r.Context())
	attrs := []any{slog.String("path", r.URL.Path), slog.String("username", sess.Username), slog.Any("error", err)}
	if isInputError(err) {
		h.logger.Debug("dashboard write rejected", attrs...)
		return
	}
	h.logger.Warn("dashboard write failed", attrs...)
}

func isInputError(err error) bool {
	var verrs validator.ValidationErrors
	var formErr *resources.FormError
	return errors.As(err, &verrs) || errors.As(err, &formErr)
}
