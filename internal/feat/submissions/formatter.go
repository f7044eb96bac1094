package submissions

import (
	"context"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/stereo-express/touch/internal/feat/subjects"
	"github.com/stereo-express/touch/pkg/cl/i18n"
	"github.com/stereo-express/touch/pkg/cl/logger"
)

const (
	// ShortDateFormat renders submission dates in lists, titles and messages.
	ShortDateFormat = "01/02/2006 - 15:04"
	// EditDateFormat is the layout of the date field of the edit form.
	EditDateFormat = "2006-01-02 15:04:05"
)

const comingSoon = "This value is coming soon as a compatible library version is about to be released."

var labels = map[string]string{
	"id":               "ID",
	"name":             "Name",
	"mail":             "Email address",
	"subject":          "Subject",
	"message":          "Message",
	"newsletter":       "Newsletter subscription",
	"language":         "Language",
	"timestamp":        "Date",
	"ip_address":       "IP address",
	"ip_address_proxy": "IP address (proxy)",
	"browser":          "Browser",
	"operating_system": "Operating system",
	"user_agent":       "User agent",
	"operations":       "Operations",
	"canonical_link":   "View",
	"edit_link":        "Edit",
	"delete_link":      "Delete",
}

// SubjectLookup finds live subjects.
type SubjectLookup interface {
	Subject(ctx context.Context, locale string, id int64) (subjects.Subject, bool)
}

// LanguageNamer names language codes.
type LanguageNamer interface {
	LanguageName(code string) string
}

// Formatter turns submission field keys into labels and raw values into
// display HTML.
type Formatter struct {
	subjects  SubjectLookup
	languages LanguageNamer
	tr        i18n.Translator
	loc       *time.Location
	log       logger.Logger
}

// NewFormatter creates a Formatter rendering dates in loc.
func NewFormatter(subjects SubjectLookup, languages LanguageNamer, tr i18n.Translator, loc *time.Location, log logger.Logger) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{
		subjects:  subjects,
		languages: languages,
		tr:        tr,
		loc:       loc,
		log:       log,
	}
}

// Label returns the translated label of key.
func (f *Formatter) Label(locale, key string) (string, bool) {
	label, ok := labels[key]
	if !ok {
		return "", false
	}
	return f.tr.T(locale, label), true
}

// Value renders raw as the display value of key. ok is false for unknown
// keys.
func (f *Formatter) Value(ctx context.Context, locale, key string, raw any) (template.HTML, bool) {
	switch key {
	case "mail":
		addr := template.HTMLEscapeString(toString(raw))
		if addr == "" {
			return "", true
		}
		return template.HTML(`<a href="mailto:` + addr + `">` + addr + `</a>`), true

	case "subject":
		name, href := f.subject(ctx, locale, raw)
		if href == "" {
			return escape(name), true
		}
		return template.HTML(`<a href="` + href + `">` + template.HTMLEscapeString(name) + `</a>`), true
	}

	text, ok := f.Text(ctx, locale, key, raw)
	if !ok {
		return "", false
	}
	return escape(text), true
}

// Text is the plain display text of key, the visible part of Value.
func (f *Formatter) Text(ctx context.Context, locale, key string, raw any) (string, bool) {
	switch key {
	case "id", "name", "mail", "message", "ip_address", "ip_address_proxy", "user_agent":
		return toString(raw), true

	case "subject":
		name, _ := f.subject(ctx, locale, raw)
		return name, true

	case "newsletter":
		switch toString(raw) {
		case "1", "true":
			return f.tr.T(locale, "Yes"), true
		case "0", "false":
			return f.tr.T(locale, "No"), true
		default:
			return "", true
		}

	case "language":
		code := toString(raw)
		if code == "" {
			return "", true
		}
		return f.languages.LanguageName(code), true

	case "timestamp":
		t, ok := toTime(raw)
		if !ok {
			return "", true
		}
		return f.FormatDate(t), true

	case "browser", "operating_system":
		return f.tr.T(locale, comingSoon), true
	}

	return "", false
}

// subject resolves a subject reference to its display name and, for a
// published live subject, the path of its public page.
func (f *Formatter) subject(ctx context.Context, locale string, raw any) (name, href string) {
	ref, ok := raw.(SubjectRef)
	if !ok {
		return toString(raw), ""
	}

	live, found := f.subjects.Subject(ctx, locale, ref.ID)
	if !found {
		return ref.Name, ""
	}
	if !live.Published {
		return live.Name, ""
	}
	return live.Name, fmt.Sprintf("/subjects/%d", live.ID)
}

// FormatDate renders t in the short date format of the site timezone.
func (f *Formatter) FormatDate(t time.Time) string {
	return t.In(f.loc).Format(ShortDateFormat)
}

// Location returns the site timezone.
func (f *Formatter) Location() *time.Location {
	return f.loc
}

// Field is one labelled value of a submission record.
type Field struct {
	Key   string
	Label string
	Value template.HTML
}

// recordKeys lists the fields of the detail record in display order.
var recordKeys = []string{
	"id", "name", "mail", "subject", "message", "newsletter", "language",
	"timestamp", "ip_address", "ip_address_proxy", "user_agent",
	"browser", "operating_system",
}

// Record builds the ordered detail record of s.
func (f *Formatter) Record(ctx context.Context, locale string, s Submission) []Field {
	raw := map[string]any{
		"id":               s.ID,
		"name":             s.Name,
		"mail":             s.Mail,
		"subject":          s.Subject(),
		"message":          s.Message,
		"newsletter":       s.Newsletter,
		"language":         s.Language,
		"timestamp":        s.Timestamp,
		"ip_address":       s.IPAddress,
		"ip_address_proxy": s.IPAddressProxy,
		"user_agent":       s.UserAgent,
		"browser":          s.UserAgent,
		"operating_system": s.UserAgent,
	}

	fields := make([]Field, 0, len(recordKeys))
	for _, key := range recordKeys {
		label, _ := f.Label(locale, key)
		value, _ := f.Value(ctx, locale, key, raw[key])
		fields = append(fields, Field{Key: key, Label: label, Value: value})
	}
	return fields
}

func escape(v any) template.HTML {
	return template.HTML(template.HTMLEscapeString(toString(v)))
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case int64:
		return time.Unix(x, 0), true
	case int:
		return time.Unix(int64(x), 0), true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(n, 0), true
	}
	return time.Time{}, false
}
