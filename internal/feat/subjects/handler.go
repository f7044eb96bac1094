package subjects

import (
	"context"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/stereo-express/touch/pkg/cl/config"
	"github.com/stereo-express/touch/pkg/cl/i18n"
	"github.com/stereo-express/touch/pkg/cl/logger"
	"github.com/stereo-express/touch/pkg/cl/middleware"
	"github.com/stereo-express/touch/pkg/cl/render"
)

// Handler serves the public subject pages.
type Handler struct {
	provider    *Provider
	tr          i18n.Translator
	templatesFS fs.FS
	tpls        *render.Templates
	cfg         *config.Config
	log         logger.Logger
}

// NewHandler creates a new subjects handler.
func NewHandler(provider *Provider, tr i18n.Translator, templatesFS fs.FS, cfg *config.Config, log logger.Logger) *Handler {
	return &Handler{
		provider:    provider,
		tr:          tr,
		templatesFS: templatesFS,
		cfg:         cfg,
		log:         log,
	}
}

// Start parses the subject templates.
func (h *Handler) Start(ctx context.Context) error {
	h.tpls = render.NewTemplates(h.templatesFS, "assets/templates", nil)
	if err := h.tpls.Parse("subjects/show"); err != nil {
		return err
	}
	h.log.Info("Subjects handler started")
	return nil
}

// RegisterRoutes registers the subject page route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.log.Info("Registering subject routes")
	r.Get("/subjects/{id}", h.HandleShow)
}

type subjectView struct {
	render.Page
	Subject Subject
}

// HandleShow renders a published subject with its markdown description.
func (h *Handler) HandleShow(w http.ResponseWriter, r *http.Request) {
	locale := middleware.GetLocale(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	subj, ok := h.provider.Subject(r.Context(), locale, id)
	if !ok || !subj.Published {
		http.NotFound(w, r)
		return
	}

	view := subjectView{
		Page: render.Page{
			Title:    subj.Name,
			Locale:   locale,
			SiteName: h.cfg.Site.Name,
		},
		Subject: subj,
	}
	if err := h.tpls.Execute(w, "subjects/show", "base.html", view, render.LocaleFuncs(h.tr, locale)); err != nil {
		h.log.Errorf("Template execute error for subjects/show: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
