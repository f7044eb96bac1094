package render

import (
	"html/template"

	"github.com/stereo-express/touch/pkg/cl/i18n"
)

// Page holds the data base.html reads. Page views embed it.
type Page struct {
	Title     string
	Locale    string
	SiteName  string
	User      string
	Flash     string
	CSRFField template.HTML
}

// LocaleFuncs binds the "t" template func to locale.
func LocaleFuncs(tr i18n.Translator, locale string) template.FuncMap {
	return template.FuncMap{
		"t": func(key string, args ...any) string {
			return tr.T(locale, key, args...)
		},
	}
}
