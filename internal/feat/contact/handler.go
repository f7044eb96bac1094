package contact

import (
	"context"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stereo-express/touch/internal/feat/subjects"
	"github.com/stereo-express/touch/internal/feat/submissions"
	"github.com/stereo-express/touch/pkg/cl/config"
	"github.com/stereo-express/touch/pkg/cl/i18n"
	"github.com/stereo-express/touch/pkg/cl/logger"
	"github.com/stereo-express/touch/pkg/cl/mailer"
	"github.com/stereo-express/touch/pkg/cl/middleware"
	"github.com/stereo-express/touch/pkg/cl/render"
	"github.com/stereo-express/touch/pkg/cl/validation"
)

const (
	formPage      = "contact/form"
	honeypotField = "_honeypot"
)

// Handler implements the public contact form.
type Handler struct {
	store       submissions.Store
	provider    *subjects.Provider
	formatter   *submissions.Formatter
	mailer      mailer.Mailer
	tr          i18n.Translator
	validator   *validation.Validator
	csrfMw      func(http.Handler) http.Handler
	templatesFS fs.FS
	tpls        *render.Templates
	mailTmpl    *texttemplate.Template
	cfg         *config.Config
	log         logger.Logger
	now         func() time.Time
	limiter     *rateLimiter
	stop        context.CancelFunc
}

// NewHandler creates a new contact form handler.
func NewHandler(
	store submissions.Store,
	provider *subjects.Provider,
	formatter *submissions.Formatter,
	m mailer.Mailer,
	tr i18n.Translator,
	csrfMw func(http.Handler) http.Handler,
	templatesFS fs.FS,
	cfg *config.Config,
	log logger.Logger,
) *Handler {
	return &Handler{
		store:       store,
		provider:    provider,
		formatter:   formatter,
		mailer:      m,
		tr:          tr,
		validator:   validation.New(),
		csrfMw:      csrfMw,
		templatesFS: templatesFS,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
		limiter:     newRateLimiter(cfg.Forms.RateLimit, time.Hour),
	}
}

// SetClock replaces the clock used to timestamp submissions.
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
}

// Start parses the form and mail templates and starts the limiter cleanup.
func (h *Handler) Start(ctx context.Context) error {
	h.tpls = render.NewTemplates(h.templatesFS, "assets/templates", nil)
	if err := h.tpls.ParseWith(formPage, "contact/subject_description"); err != nil {
		return err
	}

	mailTmpl, err := parseMailTemplate(h.templatesFS)
	if err != nil {
		return err
	}
	h.mailTmpl = mailTmpl

	cleanupCtx, cancel := context.WithCancel(context.Background())
	h.stop = cancel
	go h.limiter.cleanup(cleanupCtx, 10*time.Minute)

	h.log.Info("Contact handler started")
	return nil
}

// Stop ends the limiter cleanup.
func (h *Handler) Stop(ctx context.Context) error {
	if h.stop != nil {
		h.stop()
	}
	return nil
}

// RegisterRoutes registers the contact form routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.log.Info("Registering contact routes")

	r.Route("/contact", func(r chi.Router) {
		r.Use(h.corsMiddleware)
		r.Use(h.csrfMw)
		r.Get("/", h.HandleForm)
		r.With(h.rateLimitMiddleware).Post("/", h.HandleSubmit)
		r.Get("/subject-description", h.HandleSubjectDescription)
	})
}

type contactForm struct {
	Name       string `form:"name" validate:"required,max=255"`
	Mail       string `form:"mail" validate:"required,email,max=254"`
	Subject    int64  `form:"subject"`
	Message    string `form:"message" validate:"required"`
	Newsletter bool   `form:"newsletter"`
}

type descriptionView struct {
	Description string
}

type formView struct {
	render.Page
	Form               contactForm
	Subjects           []subjects.Info
	ShowSubject        bool
	SubjectDescription descriptionView
	Preselected        string
	Errors             map[string]string
	Success            string
	Error              string
}

// HandleForm renders a pristine contact form.
func (h *Handler) HandleForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locale := middleware.GetLocale(ctx)
	preselected := r.URL.Query().Get("subjects")
	set := h.subjectSet(ctx, locale, preselected)

	view := h.newView(w, r, set, preselected)
	view.Form.Subject = defaultSubject(set)
	view.SubjectDescription = descriptionOf(set, view.Form.Subject)
	view.Success = view.Flash
	view.Flash = ""

	h.render(w, r, "base.html", view)
}

// HandleSubjectDescription renders the description fragment of a subject.
func (h *Handler) HandleSubjectDescription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locale := middleware.GetLocale(ctx)
	set := h.subjectSet(ctx, locale, r.URL.Query().Get("subjects"))

	id, _ := strconv.ParseInt(r.URL.Query().Get("subject"), 10, 64)
	h.render(w, r, "subject-description", descriptionOf(set, id))
}

// HandleSubmit validates, stores and mails a submission.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locale := middleware.GetLocale(ctx)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	preselected := r.PostFormValue("subjects")
	set := h.subjectSet(ctx, locale, preselected)

	if r.PostFormValue(honeypotField) != "" {
		h.log.Infof("Contact form honeypot filled from %s, discarding", extractIP(r))
		h.acknowledge(w, r, locale, preselected)
		return
	}

	form := readContactForm(r)
	if set.Len() < 2 {
		form.Subject = defaultSubject(set)
	}

	view := h.newView(w, r, set, preselected)
	view.Form = form
	view.SubjectDescription = descriptionOf(set, form.Subject)

	if errs := h.validate(locale, form, set); errs.HasErrors() {
		view.Errors = errs.AsMap()
		h.render(w, r, "base.html", view)
		return
	}

	sub := h.enrich(r, locale, form, set)

	stored := h.store.Insert(ctx, sub) > 0
	if !stored {
		h.log.Errorf("Contact submission by %s was not stored", sub.Mail)
	}

	sent := h.send(ctx, sub, set)

	if !stored || !sent {
		view.Error = h.tr.T(locale, "Your message could not be sent. Please try again later.")
		h.render(w, r, "base.html", view)
		return
	}

	h.acknowledge(w, r, locale, preselected)
}

// acknowledge redirects to a pristine form carrying the thank-you message.
func (h *Handler) acknowledge(w http.ResponseWriter, r *http.Request, locale, preselected string) {
	middleware.SetFlash(w, h.tr.T(locale, "Thank you for contacting me, I'll reach back to you shortly."))
	target := "/contact"
	if preselected != "" {
		target += "?" + url.Values{"subjects": {preselected}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// enrich completes the form values with the subject snapshot and request
// metadata.
func (h *Handler) enrich(r *http.Request, locale string, form contactForm, set subjects.SubjectSet) submissions.Submission {
	subjectName := h.tr.T(locale, "Undefined subject")
	if info, ok := set.Get(form.Subject); ok && info.Name != "" {
		subjectName = info.Name
	}

	return submissions.Submission{
		Name:           form.Name,
		Mail:           form.Mail,
		SubjectID:      form.Subject,
		SubjectName:    subjectName,
		Message:        form.Message,
		Newsletter:     form.Newsletter,
		Language:       locale,
		Timestamp:      h.now().Unix(),
		IPAddress:      peerIP(r),
		IPAddressProxy: r.Header.Get("X-Forwarded-For"),
		UserAgent:      r.UserAgent(),
	}
}

func (h *Handler) send(ctx context.Context, sub submissions.Submission, set subjects.SubjectSet) bool {
	info, _ := set.Get(sub.SubjectID)
	msg, err := h.buildMail(sub, h.recipient(info.Mail))
	if err != nil {
		h.log.Errorf("Cannot build contact mail: %v", err)
		return false
	}
	if err := h.mailer.Send(ctx, msg); err != nil {
		h.log.Errorf("Cannot send contact mail to %s: %v", msg.To, err)
		return false
	}
	return true
}

func (h *Handler) validate(locale string, form contactForm, set subjects.SubjectSet) validation.ValidationErrors {
	labels := map[string]string{
		"name":    h.tr.T(locale, "My name is"),
		"mail":    h.tr.T(locale, "I'm reachable at"),
		"message": h.tr.T(locale, "I also have some details"),
	}
	errs := h.validator.Struct(form, func(e validation.ValidationError) string {
		return submissions.FieldMessage(h.tr, locale, labels[e.Field], e)
	})

	if set.Len() >= 2 {
		label := h.tr.T(locale, "I write to you about")
		if form.Subject == 0 {
			errs.Add("subject", "required", h.tr.T(locale, "%s field is required.", label))
		} else if _, ok := set.Get(form.Subject); !ok {
			errs.Add("subject", "oneof", h.tr.T(locale, "%s: the selected value is not valid.", label))
		}
	}
	return errs
}

func readContactForm(r *http.Request) contactForm {
	f := contactForm{
		Name:       strings.TrimSpace(r.PostFormValue("name")),
		Mail:       strings.TrimSpace(r.PostFormValue("mail")),
		Message:    strings.TrimSpace(r.PostFormValue("message")),
		Newsletter: r.PostFormValue("newsletter") == "1",
	}
	f.Subject, _ = strconv.ParseInt(r.PostFormValue("subject"), 10, 64)
	return f
}

// subjectSet loads the subject options, restricted to the preselected ids
// when any of them is published.
func (h *Handler) subjectSet(ctx context.Context, locale, preselected string) subjects.SubjectSet {
	var pre []subjects.Subject
	if ids := parseIDs(preselected); len(ids) > 0 {
		pre = h.provider.SubjectsByID(ctx, ids...)
	}
	return h.provider.SubjectsInformation(h.provider.SubjectEntities(ctx, locale, pre...))
}

// defaultSubject is the sole subject of a one-subject set, otherwise 0.
func defaultSubject(set subjects.SubjectSet) int64 {
	if set.Len() == 1 {
		return set.Items[0].ID
	}
	return 0
}

func descriptionOf(set subjects.SubjectSet, id int64) descriptionView {
	info, ok := set.Get(id)
	if !ok {
		return descriptionView{}
	}
	return descriptionView{Description: info.Description}
}

func parseIDs(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func (h *Handler) newView(w http.ResponseWriter, r *http.Request, set subjects.SubjectSet, preselected string) formView {
	locale := middleware.GetLocale(r.Context())
	return formView{
		Page: render.Page{
			Title:     h.tr.T(locale, "Contact"),
			Locale:    locale,
			SiteName:  h.cfg.Site.Name,
			Flash:     middleware.PopFlash(w, r),
			CSRFField: middleware.CSRFField(r),
		},
		Subjects:    set.Items,
		ShowSubject: set.Len() >= 2,
		Preselected: preselected,
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	locale := middleware.GetLocale(r.Context())
	if err := h.tpls.Execute(w, formPage, name, data, render.LocaleFuncs(h.tr, locale)); err != nil {
		h.log.Errorf("Template execute error for %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
