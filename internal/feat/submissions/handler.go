package submissions

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stereo-express/touch/internal/feat/subjects"
	"github.com/stereo-express/touch/pkg/cl/config"
	"github.com/stereo-express/touch/pkg/cl/i18n"
	"github.com/stereo-express/touch/pkg/cl/logger"
	"github.com/stereo-express/touch/pkg/cl/middleware"
	"github.com/stereo-express/touch/pkg/cl/render"
	"github.com/stereo-express/touch/pkg/cl/validation"
)

// BasePath is the mount point of the admin views.
const BasePath = "/admin/touch/submissions"

// Handler implements the admin list, detail, edit and delete views.
type Handler struct {
	store       Store
	formatter   *Formatter
	provider    *subjects.Provider
	tr          i18n.Translator
	validator   *validation.Validator
	sessionMw   func(http.Handler) http.Handler
	csrfMw      func(http.Handler) http.Handler
	templatesFS fs.FS
	tpls        *render.Templates
	cfg         *config.Config
	log         logger.Logger
}

// NewHandler creates a new submissions handler.
func NewHandler(
	store Store,
	formatter *Formatter,
	provider *subjects.Provider,
	tr i18n.Translator,
	sessionMw func(http.Handler) http.Handler,
	csrfMw func(http.Handler) http.Handler,
	templatesFS fs.FS,
	cfg *config.Config,
	log logger.Logger,
) *Handler {
	return &Handler{
		store:       store,
		formatter:   formatter,
		provider:    provider,
		tr:          tr,
		validator:   validation.New(),
		sessionMw:   sessionMw,
		csrfMw:      csrfMw,
		templatesFS: templatesFS,
		cfg:         cfg,
		log:         log,
	}
}

// Start parses the admin templates.
func (h *Handler) Start(ctx context.Context) error {
	h.tpls = render.NewTemplates(h.templatesFS, "assets/templates", nil)
	if err := h.tpls.Parse("submissions/list", "submissions/show", "submissions/edit", "submissions/delete"); err != nil {
		return err
	}
	h.log.Info("Submissions handler started")
	return nil
}

// RegisterRoutes registers the admin routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.log.Info("Registering submissions routes")

	r.Route(BasePath, func(r chi.Router) {
		r.Use(h.sessionMw)
		r.Use(h.csrfMw)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleShow)
		r.Get("/{id}/edit", h.HandleEdit)
		r.Post("/{id}/edit", h.HandleEdit)
		r.Get("/{id}/delete", h.HandleDelete)
		r.Post("/{id}/delete", h.HandleDelete)
	})
}

// --- List ---

type listColumn struct {
	Key      string
	Label    string
	Sortable bool
	Active   bool
	Dir      string
	URL      string
}

type listView struct {
	render.Page
	Columns    []listColumn
	Rows       []Row
	Operations string
	ViewLabel  string
	EditLabel  string
	DelLabel   string
	Empty      string
}

// HandleList renders every submission, sorted in memory by the displayed
// value of the requested column.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locale := middleware.GetLocale(ctx)
	order, dir := ParseSort(r.URL.Query().Get("order"), r.URL.Query().Get("sort"))

	subs := h.store.Select(ctx)
	rows := make([]Row, 0, len(subs))
	for _, sub := range subs {
		rows = append(rows, h.listRow(ctx, locale, sub))
	}
	SortRows(rows, order, dir)

	columns := make([]listColumn, 0, len(listColumns))
	for _, key := range listColumns {
		label, _ := h.formatter.Label(locale, key)
		col := listColumn{Key: key, Label: label, Sortable: Sortable(key)}
		if col.Sortable {
			col.Active = key == order
			col.Dir = dir
			q := url.Values{"order": {key}, "sort": {Toggle(key, order, dir)}}
			col.URL = BasePath + "?" + q.Encode()
		}
		columns = append(columns, col)
	}

	view := listView{
		Page:    h.page(w, r, h.tr.T(locale, "Submissions")),
		Columns: columns,
		Rows:    rows,
		Empty:   h.tr.T(locale, "There are no submissions yet."),
	}
	view.Operations, _ = h.formatter.Label(locale, "operations")
	view.ViewLabel, _ = h.formatter.Label(locale, "canonical_link")
	view.EditLabel, _ = h.formatter.Label(locale, "edit_link")
	view.DelLabel, _ = h.formatter.Label(locale, "delete_link")

	h.render(w, r, "submissions/list", view)
}

func (h *Handler) listRow(ctx context.Context, locale string, sub Submission) Row {
	raw := map[string]any{
		"id":        sub.ID,
		"name":      sub.Name,
		"mail":      sub.Mail,
		"subject":   sub.Subject(),
		"language":  sub.Language,
		"timestamp": sub.Timestamp,
	}
	row := Row{
		ID:    sub.ID,
		Cells: make(map[string]template.HTML, len(raw)),
		Texts: make(map[string]string, len(raw)),
	}
	for _, key := range listColumns {
		row.Cells[key], _ = h.formatter.Value(ctx, locale, key, raw[key])
		row.Texts[key], _ = h.formatter.Text(ctx, locale, key, raw[key])
	}
	return row
}

// --- Detail ---

type showView struct {
	render.Page
	ID        int64
	Fields    []Field
	EditLabel string
	DelLabel  string
}

// HandleShow renders the detail record of one submission.
func (h *Handler) HandleShow(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.load(w, r)
	if !ok {
		return
	}
	locale := middleware.GetLocale(r.Context())

	view := showView{
		Page:   h.page(w, r, h.title(locale, sub)),
		ID:     sub.ID,
		Fields: h.formatter.Record(r.Context(), locale, sub),
	}
	view.EditLabel, _ = h.formatter.Label(locale, "edit_link")
	view.DelLabel, _ = h.formatter.Label(locale, "delete_link")

	h.render(w, r, "submissions/show", view)
}

// --- Edit ---

type editForm struct {
	Name        string `form:"name" validate:"required,max=255"`
	Mail        string `form:"mail" validate:"required,email,max=254"`
	SubjectID   int64  `form:"subject_id"`
	SubjectName string `form:"subject_name"`
	Message     string `form:"message" validate:"required"`
	Newsletter  bool   `form:"newsletter"`
	Language    string `form:"language" validate:"required"`
	Date        string `form:"datetime" validate:"required"`
}

type editView struct {
	render.Page
	ID             int64
	Form           editForm
	Subjects       []subjects.Info
	SubjectMissing bool
	Languages      []subjects.Language
	IPAddress      string
	IPAddressProxy string
	UserAgent      string
	Errors         map[string]string
	Error          string
}

// HandleEdit shows and saves the edit form of one submission.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.load(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	locale := middleware.GetLocale(ctx)

	set := h.provider.SubjectsInformation(h.provider.SubjectEntities(ctx, locale))
	_, live := set.Get(sub.SubjectID)

	view := editView{
		Page:           h.page(w, r, h.title(locale, sub)),
		ID:             sub.ID,
		Subjects:       set.Items,
		SubjectMissing: !live,
		Languages:      h.provider.Languages(),
		IPAddress:      sub.IPAddress,
		IPAddressProxy: sub.IPAddressProxy,
		UserAgent:      sub.UserAgent,
	}

	if r.Method == http.MethodGet {
		view.Form = editForm{
			Name:       sub.Name,
			Mail:       sub.Mail,
			SubjectID:  sub.SubjectID,
			Message:    sub.Message,
			Newsletter: sub.Newsletter,
			Language:   sub.Language,
			Date:       sub.Time().In(h.formatter.Location()).Format(EditDateFormat),
		}
		if !live {
			view.Form.SubjectName = sub.SubjectName
		}
		h.render(w, r, "submissions/edit", view)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	view.Form = readEditForm(r)

	updated, errs := h.validateEdit(locale, sub, view.Form, set, live)
	if errs.HasErrors() {
		view.Errors = errs.AsMap()
		h.render(w, r, "submissions/edit", view)
		return
	}

	if h.store.Update(ctx, updated) == 0 {
		view.Error = h.tr.T(locale, "The submission could not be saved.")
		h.render(w, r, "submissions/edit", view)
		return
	}

	msg := h.tr.T(locale, "The submission by %s on %s has been successfully saved.",
		updated.Name, h.formatter.FormatDate(updated.Time()))
	h.log.Infof("Submission %d updated by %s", updated.ID, middleware.GetUserID(ctx))
	middleware.SetFlash(w, msg)
	http.Redirect(w, r, fmt.Sprintf("%s/%d", BasePath, sub.ID), http.StatusSeeOther)
}

func readEditForm(r *http.Request) editForm {
	f := editForm{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Mail:        strings.TrimSpace(r.PostFormValue("mail")),
		SubjectName: strings.TrimSpace(r.PostFormValue("subject_name")),
		Message:     strings.TrimSpace(r.PostFormValue("message")),
		Newsletter:  r.PostFormValue("newsletter") == "1",
		Language:    r.PostFormValue("language"),
		Date:        strings.TrimSpace(r.PostFormValue("datetime")),
	}
	f.SubjectID, _ = strconv.ParseInt(r.PostFormValue("subject_id"), 10, 64)
	return f
}

// validateEdit checks f and returns the submission to store. Request
// metadata is carried over from current untouched.
func (h *Handler) validateEdit(locale string, current Submission, f editForm, set subjects.SubjectSet, live bool) (Submission, validation.ValidationErrors) {
	errs := h.validator.Struct(f, h.messages(locale))

	updated := current
	updated.Name = f.Name
	updated.Mail = f.Mail
	updated.Message = f.Message
	updated.Newsletter = f.Newsletter
	updated.Language = f.Language

	if live {
		info, ok := set.Get(f.SubjectID)
		if !ok {
			errs.Add("subject_id", "oneof", h.tr.T(locale, "%s: the selected value is not valid.", h.label(locale, "subject")))
		}
		updated.SubjectID = f.SubjectID
		updated.SubjectName = info.Name
	} else {
		if f.SubjectName == "" {
			errs.Add("subject_name", "required", h.tr.T(locale, "%s field is required.", h.label(locale, "subject")))
		}
		updated.SubjectName = f.SubjectName
	}

	if f.Language != "" && !h.knownLanguage(f.Language) {
		errs.Add("language", "oneof", h.tr.T(locale, "%s: the selected value is not valid.", h.label(locale, "language")))
	}

	if f.Date != "" {
		t, err := time.ParseInLocation(EditDateFormat, f.Date, h.formatter.Location())
		if err != nil {
			errs.Add("datetime", "datetime", h.tr.T(locale, "The %s date is invalid. Use the format %s.", h.label(locale, "timestamp"), EditDateFormat))
		} else {
			updated.Timestamp = t.Unix()
		}
	}

	return updated, errs
}

func (h *Handler) knownLanguage(code string) bool {
	for _, l := range h.provider.Languages() {
		if l.Code == code {
			return true
		}
	}
	return false
}

// --- Delete ---

type deleteView struct {
	render.Page
	ID       int64
	Question string
}

// HandleDelete asks for confirmation and deletes one submission.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.load(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	locale := middleware.GetLocale(ctx)
	date := h.formatter.FormatDate(sub.Time())

	if r.Method == http.MethodGet {
		h.render(w, r, "submissions/delete", deleteView{
			Page:     h.page(w, r, h.title(locale, sub)),
			ID:       sub.ID,
			Question: h.tr.T(locale, "Are you sure you want to delete the submission by %s on %s?", sub.Name, date),
		})
		return
	}

	if h.store.Delete(ctx, sub.ID) == 0 {
		middleware.SetFlash(w, h.tr.T(locale, "The submission could not be deleted."))
		http.Redirect(w, r, BasePath, http.StatusSeeOther)
		return
	}

	h.log.Infof("The submission by %s on %s has been deleted.", sub.Name, date)
	middleware.SetFlash(w, h.tr.T(locale, "The submission by %s on %s has been deleted.", sub.Name, date))
	http.Redirect(w, r, BasePath, http.StatusSeeOther)
}

// --- Helpers ---

// load reads the submission named by the id URL parameter, answering 404
// when it does not exist.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Submission, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return Submission{}, false
	}
	found := h.store.Select(r.Context(), id)
	if len(found) == 0 {
		http.NotFound(w, r)
		return Submission{}, false
	}
	return found[0], true
}

func (h *Handler) title(locale string, sub Submission) string {
	return h.tr.T(locale, "Submission by %s on %s", sub.Name, h.formatter.FormatDate(sub.Time()))
}

func (h *Handler) label(locale, key string) string {
	label, _ := h.formatter.Label(locale, key)
	return label
}

// messages renders validation failures with the field labels of locale.
func (h *Handler) messages(locale string) validation.MessageFunc {
	fieldLabels := map[string]string{
		"name":     h.label(locale, "name"),
		"mail":     h.label(locale, "mail"),
		"message":  h.label(locale, "message"),
		"language": h.label(locale, "language"),
		"datetime": h.label(locale, "timestamp"),
	}
	return func(e validation.ValidationError) string {
		return FieldMessage(h.tr, locale, fieldLabels[e.Field], e)
	}
}

// FieldMessage renders a validation failure of the field called label.
func FieldMessage(tr i18n.Translator, locale, label string, e validation.ValidationError) string {
	switch e.Rule {
	case "required":
		return tr.T(locale, "%s field is required.", label)
	case "email":
		return tr.T(locale, "%s: the email address is not valid.", label)
	case "max":
		return tr.T(locale, "%s cannot be longer than %s characters.", label, fmt.Sprint(e.Params["max"]))
	default:
		return tr.T(locale, "%s: the value is not valid.", label)
	}
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request, title string) render.Page {
	return render.Page{
		Title:     title,
		Locale:    middleware.GetLocale(r.Context()),
		SiteName:  h.cfg.Site.Name,
		User:      middleware.GetUserID(r.Context()),
		Flash:     middleware.PopFlash(w, r),
		CSRFField: middleware.CSRFField(r),
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page string, data any) {
	locale := middleware.GetLocale(r.Context())
	if err := h.tpls.Execute(w, page, "base.html", data, render.LocaleFuncs(h.tr, locale)); err != nil {
		h.log.Errorf("Template execute error for %s: %v", page, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
