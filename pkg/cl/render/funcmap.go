package render

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// md renders without WithUnsafe so raw HTML in descriptions is escaped.
var md = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkhtml.WithHardWraps(),
	),
)

// Markdown converts markdown source to HTML. On failure the escaped source
// is returned.
func Markdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// FuncMap returns a template.FuncMap with all render functions.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"markdown": Markdown,
		"safeHTML": func(s string) template.HTML {
			return template.HTML(s)
		},
		"truncate": func(s string, length int) string {
			r := []rune(s)
			if len(r) <= length {
				return s
			}
			return string(r[:length]) + "..."
		},
		"add": func(a, b int) int { return a + b },
		// t is replaced per request by handlers that translate.
		"t": func(key string, args ...any) string { return key },
	}
}

// MergeFuncMaps merges multiple FuncMaps into one.
// Later maps override earlier ones for duplicate keys.
func MergeFuncMaps(maps ...template.FuncMap) template.FuncMap {
	result := make(template.FuncMap)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

// Templates parses base.html plus the named page templates from fsys.
// Each page is parsed into its own set so block names can repeat.
type Templates struct {
	fsys  fs.FS
	base  string
	funcs template.FuncMap
	sets  map[string]*template.Template
}

// NewTemplates creates an empty template registry rooted at dir.
func NewTemplates(fsys fs.FS, dir string, funcs template.FuncMap) *Templates {
	return &Templates{
		fsys:  fsys,
		base:  dir,
		funcs: MergeFuncMaps(FuncMap(), funcs),
		sets:  make(map[string]*template.Template),
	}
}

// Parse loads the given pages ("contact/form", "submissions/list", ...).
func (t *Templates) Parse(pages ...string) error {
	for _, page := range pages {
		if err := t.ParseWith(page); err != nil {
			return err
		}
	}
	return nil
}

// ParseWith loads page together with partial templates it includes.
func (t *Templates) ParseWith(page string, partials ...string) error {
	files := []string{t.base + "/base.html", t.base + "/" + page + ".html"}
	for _, p := range partials {
		files = append(files, t.base+"/"+p+".html")
	}
	tmpl, err := template.New(page).Funcs(t.funcs).ParseFS(t.fsys, files...)
	if err != nil {
		return err
	}
	t.sets[page] = tmpl
	return nil
}

// Execute renders the named template of page with per-request funcs.
func (t *Templates) Execute(w http.ResponseWriter, page, name string, data any, funcs template.FuncMap) error {
	set, ok := t.sets[page]
	if !ok {
		return fs.ErrNotExist
	}
	tmpl, err := set.Clone()
	if err != nil {
		return err
	}
	if funcs != nil {
		tmpl = tmpl.Funcs(funcs)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = buf.WriteTo(w)
	return err
}
