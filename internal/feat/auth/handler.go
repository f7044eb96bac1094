package auth

import (
	"context"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/stereo-express/touch/pkg/cl/config"
	"github.com/stereo-express/touch/pkg/cl/i18n"
	"github.com/stereo-express/touch/pkg/cl/logger"
	"github.com/stereo-express/touch/pkg/cl/middleware"
	"github.com/stereo-express/touch/pkg/cl/render"
)

const (
	LoginPath  = "/admin/login"
	LogoutPath = "/admin/logout"
	homePath   = "/admin/touch/submissions"
)

// Handler handles authentication routes.
type Handler struct {
	service     Service
	tr          i18n.Translator
	csrfMw      func(http.Handler) http.Handler
	templatesFS fs.FS
	tpls        *render.Templates
	cfg         *config.Config
	log         logger.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(service Service, tr i18n.Translator, csrfMw func(http.Handler) http.Handler, templatesFS fs.FS, cfg *config.Config, log logger.Logger) *Handler {
	return &Handler{
		service:     service,
		tr:          tr,
		csrfMw:      csrfMw,
		templatesFS: templatesFS,
		cfg:         cfg,
		log:         log,
	}
}

// Start initializes templates.
func (h *Handler) Start(ctx context.Context) error {
	h.tpls = render.NewTemplates(h.templatesFS, "assets/templates", nil)
	if err := h.tpls.Parse("auth/login"); err != nil {
		return err
	}
	h.log.Info("Auth handler started")
	return nil
}

// RegisterRoutes registers authentication routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.log.Info("Registering auth routes")

	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalSession(h.service))
		r.Use(h.csrfMw)
		r.Get(LoginPath, h.HandleLogin)
		r.Post(LoginPath, h.HandleLogin)
		r.Post(LogoutPath, h.HandleLogout)
	})
}

// SessionMiddleware returns the middleware guarding admin routes.
func (h *Handler) SessionMiddleware() func(http.Handler) http.Handler {
	return middleware.Session(h.service, LoginPath)
}

type loginView struct {
	render.Page
	Error string
	Email string
}

// HandleLogin handles both GET and POST for the login page.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	locale := middleware.GetLocale(r.Context())

	if r.Method == http.MethodGet {
		if middleware.GetUserID(r.Context()) != "" {
			http.Redirect(w, r, homePath, http.StatusSeeOther)
			return
		}
		h.renderLoginForm(w, r, "", "")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if email == "" || password == "" {
		h.renderLoginForm(w, r, h.tr.T(locale, "Email and password are required"), email)
		return
	}

	admin, err := h.service.Authenticate(r.Context(), email, password)
	if err != nil {
		h.log.Errorf("Authentication failed for %s: %v", email, err)
		h.renderLoginForm(w, r, h.tr.T(locale, "Invalid email or password"), email)
		return
	}

	token, err := h.service.CreateSession(r.Context(), admin.Email)
	if err != nil {
		h.log.Errorf("Cannot create session: %v", err)
		h.renderLoginForm(w, r, h.tr.T(locale, "Invalid email or password"), email)
		return
	}

	maxAge := int(h.service.GetSessionTTL().Seconds())
	middleware.SetSessionCookie(w, token, maxAge, !h.cfg.IsDev())

	h.log.Infof("Admin authenticated: %s", admin.Email)
	http.Redirect(w, r, homePath, http.StatusSeeOther)
}

func (h *Handler) renderLoginForm(w http.ResponseWriter, r *http.Request, errorMsg, email string) {
	locale := middleware.GetLocale(r.Context())
	data := loginView{
		Page: render.Page{
			Title:     h.tr.T(locale, "Log in"),
			Locale:    locale,
			SiteName:  h.cfg.Site.Name,
			CSRFField: middleware.CSRFField(r),
		},
		Error: errorMsg,
		Email: email,
	}

	if err := h.tpls.Execute(w, "auth/login", "base.html", data, render.LocaleFuncs(h.tr, locale)); err != nil {
		h.log.Errorf("Template error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// HandleLogout handles admin logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.GetSessionID(r.Context()); token != "" {
		if err := h.service.DeleteSession(r.Context(), token); err != nil {
			h.log.Errorf("Error deleting session: %v", err)
		}
	}

	middleware.ClearSessionCookie(w)
	h.log.Info("Admin signed out")
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}
