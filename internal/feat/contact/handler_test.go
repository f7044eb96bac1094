package contact

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stereo-express/touch"
	"github.com/stereo-express/touch/internal/feat/subjects"
	"github.com/stereo-express/touch/internal/feat/submissions"
	"github.com/stereo-express/touch/internal/testutil"
	"github.com/stereo-express/touch/pkg/cl/config"
	"github.com/stereo-express/touch/pkg/cl/i18n"
	"github.com/stereo-express/touch/pkg/cl/logger"
	"github.com/stereo-express/touch/pkg/cl/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sales  = subjects.Subject{ID: 5, Name: "Sales", Description: "**Big** deals", HasMail: true, Mail: "sales@x.com", Published: true}
	press  = subjects.Subject{ID: 6, Name: "Press", Weight: 1, HasMail: true, Published: true}
	nomail = subjects.Subject{ID: 7, Name: "Jobs", Published: true}
)

var fixedNow = time.Unix(1700000000, 0)

type testEnv struct {
	router  chi.Router
	handler *Handler
	store   submissions.Store
	mailer  *testutil.FakeMailer
}

func setupTestHandler(t *testing.T, cfg *config.Config, list ...subjects.Subject) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNoopLogger()

	db, err := testutil.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	provider := &testutil.TestDBProvider{DB: db}

	repo := subjects.NewRepository(provider)
	for _, s := range list {
		require.NoError(t, repo.Upsert(ctx, s))
	}

	if cfg == nil {
		cfg = config.Default()
	}
	cfg.Site.Name = "Example"
	cfg.Site.Mail = "site@x.com"

	options := subjects.NewProvider(repo, cfg.I18n.Languages, log)
	catalog := i18n.NewCatalog()
	formatter := submissions.NewFormatter(options, options, catalog, time.UTC, log)
	store := submissions.NewStore(provider, log)
	m := &testutil.FakeMailer{}

	h := NewHandler(store, options, formatter, m, catalog, middleware.Passthrough, touch.TemplatesFS, cfg, log)
	h.SetClock(func() time.Time { return fixedNow })
	require.NoError(t, h.Start(ctx))
	t.Cleanup(func() { h.Stop(ctx) })

	r := chi.NewRouter()
	r.Use(middleware.Locale(cfg.I18n.DefaultLanguage, cfg.I18n.Languages))
	h.RegisterRoutes(r)

	return &testEnv{router: r, handler: h, store: store, mailer: m}
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (e *testEnv) submit(values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.RemoteAddr = "203.0.113.7:51234"
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func janeValues(overrides map[string]string) url.Values {
	v := url.Values{
		"name":    {"Jane"},
		"mail":    {"jane@x.com"},
		"subject": {"5"},
		"message": {"Hi"},
	}
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func flash(rec *httptest.ResponseRecorder) string {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.FlashCookieName && c.MaxAge > 0 {
			req.AddCookie(c)
		}
	}
	return middleware.PopFlash(httptest.NewRecorder(), req)
}

const thanks = "Thank you for contacting me, I'll reach back to you shortly."

func TestFormSubjectControl(t *testing.T) {
	tests := []struct {
		name       string
		subjects   []subjects.Subject
		wantSelect bool
		wantHidden string
	}{
		{name: "no subjects", wantHidden: `name="subject" value="0"`},
		{name: "subjects without mail are not offered", subjects: []subjects.Subject{nomail}, wantHidden: `name="subject" value="0"`},
		{name: "single subject", subjects: []subjects.Subject{sales, nomail}, wantHidden: `name="subject" value="5"`},
		{name: "several subjects", subjects: []subjects.Subject{sales, press, nomail}, wantSelect: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestHandler(t, nil, tt.subjects...)
			rec := env.get("/contact")
			require.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()

			if tt.wantSelect {
				assert.Contains(t, body, `<select id="edit-subject" name="subject"`)
				assert.Contains(t, body, "- Select -")
				assert.Contains(t, body, `<option value="5">Sales</option>`)
				assert.Contains(t, body, `<option value="6">Press</option>`)
				assert.NotContains(t, body, ">Jobs<")
				assert.Less(t, strings.Index(body, ">Sales<"), strings.Index(body, ">Press<"))
			} else {
				assert.NotContains(t, body, `<select id="edit-subject"`)
				assert.Contains(t, body, tt.wantHidden)
			}
		})
	}
}

func TestFormSingleSubjectShowsDescription(t *testing.T) {
	env := setupTestHandler(t, nil, sales)
	body := env.get("/contact").Body.String()
	assert.Contains(t, body, "<strong>Big</strong> deals")
}

func TestFormPreselectedSubjects(t *testing.T) {
	env := setupTestHandler(t, nil, sales, press)

	body := env.get("/contact?subjects=6").Body.String()
	assert.Contains(t, body, `name="subject" value="6"`)
	assert.Contains(t, body, `<input type="hidden" name="subjects" value="6">`)
	assert.NotContains(t, body, `<select id="edit-subject"`)

	body = env.get("/contact?subjects=99").Body.String()
	assert.Contains(t, body, `<select id="edit-subject"`, "unknown ids fall back to all subjects")

	// the description swap reads the preselection from the same form
	body = env.get("/contact?subjects=5,6").Body.String()
	form := body[strings.Index(body, "<form"):strings.Index(body, "</form>")]
	assert.Contains(t, form, `<input type="hidden" name="subjects" value="5,6">`)
	assert.Contains(t, form, `<select id="edit-subject"`)
}

func TestSubmitStoresAndMails(t *testing.T) {
	env := setupTestHandler(t, nil, sales, press)

	rec := env.submit(janeValues(nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/contact", rec.Header().Get("Location"))
	assert.Equal(t, thanks, flash(rec))

	stored := env.store.Select(context.Background())
	require.Len(t, stored, 1)
	got := stored[0]
	assert.Equal(t, "Jane", got.Name)
	assert.Equal(t, "jane@x.com", got.Mail)
	assert.Equal(t, int64(5), got.SubjectID)
	assert.Equal(t, "Sales", got.SubjectName)
	assert.Equal(t, "Hi", got.Message)
	assert.False(t, got.Newsletter)
	assert.Equal(t, "en", got.Language)
	assert.Equal(t, fixedNow.Unix(), got.Timestamp)
	assert.Equal(t, "203.0.113.7", got.IPAddress)
	assert.Equal(t, "Mozilla/5.0", got.UserAgent)

	msg, ok := env.mailer.Last()
	require.True(t, ok)
	assert.Equal(t, "sales@x.com", msg.To)
	assert.Equal(t, "jane@x.com", msg.ReplyTo)
	assert.Equal(t, "[Example] Sales", msg.Subject)
	assert.Contains(t, msg.Body, "Jane sent a message using the contact form.")
	assert.Contains(t, msg.Body, "Subject: Sales\n")
	assert.Contains(t, msg.Body, "Message: Hi\n")
	assert.Contains(t, msg.Body, "Date: 11/14/2023 - 22:13\n")
	assert.True(t, strings.HasSuffix(msg.Body, "--\nExample\n"))
}

func TestSubmitFallsBackToSiteMail(t *testing.T) {
	env := setupTestHandler(t, nil, sales, press)

	rec := env.submit(janeValues(map[string]string{"subject": "6", "newsletter": "1"}))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	msg, ok := env.mailer.Last()
	require.True(t, ok)
	assert.Equal(t, "site@x.com", msg.To)
	assert.Contains(t, msg.Body, "Newsletter subscription: Yes")

	got := env.store.Select(context.Background())[0]
	assert.True(t, got.Newsletter)
	assert.Equal(t, "Press", got.SubjectName)
}

func TestSubmitForwardedFor(t *testing.T) {
	env := setupTestHandler(t, nil, sales, press)

	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(janeValues(nil).Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	req.RemoteAddr = "10.0.0.2:8000"
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	got := env.store.Select(context.Background())[0]
	assert.Equal(t, "10.0.0.2", got.IPAddress)
	assert.Equal(t, "198.51.100.1, 10.0.0.1", got.IPAddressProxy)
}

func TestSubmitSingleSubjectIsForced(t *testing.T) {
	env := setupTestHandler(t, nil, sales)

	rec := env.submit(janeValues(map[string]string{"subject": ""}))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	got := env.store.Select(context.Background())[0]
	assert.Equal(t, int64(5), got.SubjectID)
	assert.Equal(t, "Sales", got.SubjectName)
}

func TestSubmitWithoutSubjects(t *testing.T) {
	env := setupTestHandler(t, nil)

	rec := env.submit(janeValues(map[string]string{"subject": ""}))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	got := env.store.Select(context.Background())[0]
	assert.Equal(t, int64(0), got.SubjectID)
	assert.Equal(t, "Undefined subject", got.SubjectName)

	msg, ok := env.mailer.Last()
	require.True(t, ok)
	assert.Equal(t, "site@x.com", msg.To)
}

func TestSubmitPreselectedRedirect(t *testing.T) {
	env := setupTestHandler(t, nil, sales, press)

	rec := env.submit(janeValues(map[string]string{"subject": "", "subjects": "6"}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/contact?subjects=6", rec.Header().Get("Location"))
	assert.Equal(t, int64(6), env.store.Select(context.Background())[0].SubjectID)
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		wantBody  string
	}{
		{name: "missing name", overrides: map[string]string{"name": ""}, wantBody: "My name is field is required."},
		{name: "invalid mail", overrides: map[string]string{"mail": "jane"}, wantBody: "I&#39;m reachable at: the email address is not valid."},
		{name: "missing message", overrides: map[string]string{"message": "  "}, wantBody: "I also have some details field is required."},
		{name: "missing subject", overrides: map[string]string{"subject": ""}, wantBody: "I write to you about field is required."},
		{name: "unknown subject", overrides: map[string]string{"subject": "7"}, wantBody: "I write to you about: the selected value is not valid."},
		{name: "name too long", overrides: map[string]string{"name": strings.Repeat("a", 256)}, wantBody: "My name is cannot be longer than 255 characters."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestHandler(t, nil, sales, press, nomail)

			rec := env.submit(janeValues(tt.overrides))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.Contains(t, rec.Body.String(), "form-item--error")

			assert.Empty(t, env.store.Select(context.Background()))
			assert.Empty(t, env.mailer.Sent)
		})
	}
}

func TestSubmitKeepsValuesOnError(t *testing.T) {
	env := setupTestHandler(t, nil, sales, press)

	rec := env.submit(janeValues(map[string]string{"mail": "", "message": "Keep me"}))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="Jane"`)
	assert.Contains(t, body, ">Keep me</textarea>")
	assert.Contains(t, body, `<option value="5" selected>Sales</option>`)
}

func TestSubmitMailFailure(t *testing.T) {
	env := setupTestHandler(t, nil, sales, press)
	env.mailer.Err = errors.New("smtp down")

	rec := env.submit(janeValues(nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Your message could not be sent. Please try again later.")
	assert.Empty(t, flash(rec))

	assert.Len(t, env.store.Select(context.Background()), 1, "the submission is kept")
}

func TestSubmitHoneypot(t *testing.T) {
	env := setupTestHandler(t, nil, sales, press)

	rec := env.submit(janeValues(map[string]string{"_honeypot": "http://spam.example"}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, thanks, flash(rec))

	assert.Empty(t, env.store.Select(context.Background()))
	assert.Empty(t, env.mailer.Sent)
}

func TestSubmitRateLimited(t *testing.T) {
	cfg := config.Default()
	cfg.Forms.RateLimit = 1
	env := setupTestHandler(t, cfg, sales, press)

	require.Equal(t, http.StatusSeeOther, env.submit(janeValues(nil)).Code)
	rec := env.submit(janeValues(nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Len(t, env.store.Select(context.Background()), 1)

	assert.Equal(t, http.StatusOK, env.get("/contact").Code, "the form stays reachable")
}

func TestSuccessMessageShownOnce(t *testing.T) {
	env := setupTestHandler(t, nil, sales, press)
	done := env.submit(janeValues(nil))
	require.Equal(t, http.StatusSeeOther, done.Code)

	req := httptest.NewRequest(http.MethodGet, "/contact", nil)
	for _, c := range done.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, `role="status">Thank you for contacting me, I&#39;ll reach back to you shortly.</div>`)
	assert.NotContains(t, body, `value="Jane"`, "the form is pristine")
}

func TestSubjectDescription(t *testing.T) {
	env := setupTestHandler(t, nil, sales, press)

	rec := env.get("/contact/subject-description?subject=5")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, `<div id="touch-subject-description"`))
	assert.Contains(t, body, "<strong>Big</strong> deals")

	body = env.get("/contact/subject-description?subject=6").Body.String()
	assert.Equal(t, `<div id="touch-subject-description" class="touch-subject-description"></div>`, body)

	body = env.get("/contact/subject-description?subject=5&subjects=6").Body.String()
	assert.NotContains(t, body, "Big", "subjects outside the preselection have no description")
}
