package subjects

import (
	"context"
	"errors"

	"github.com/stereo-express/touch/pkg/cl/i18n"
	"github.com/stereo-express/touch/pkg/cl/logger"
)

// Language is a configured locale and its display name.
type Language struct {
	Code string
	Name string
}

// Provider resolves subject options and configured languages for forms and
// formatters.
type Provider struct {
	repo      Repository
	languages []Language
	log       logger.Logger
}

// NewProvider creates a Provider for the configured language codes.
func NewProvider(repo Repository, languages []string, log logger.Logger) *Provider {
	langs := make([]Language, 0, len(languages))
	for _, code := range languages {
		langs = append(langs, Language{Code: code, Name: i18n.LanguageName(code)})
	}
	return &Provider{repo: repo, languages: langs, log: log}
}

// Languages returns the configured languages in configuration order.
func (p *Provider) Languages() []Language {
	out := make([]Language, len(p.languages))
	copy(out, p.languages)
	return out
}

// LanguageNames maps configured locale codes to display names.
func (p *Provider) LanguageNames() map[string]string {
	names := make(map[string]string, len(p.languages))
	for _, l := range p.languages {
		names[l.Code] = l.Name
	}
	return names
}

// LanguageName returns the display name of code. Codes outside the
// configuration are still named when x/text knows them.
func (p *Provider) LanguageName(code string) string {
	for _, l := range p.languages {
		if l.Code == code {
			return l.Name
		}
	}
	return i18n.LanguageName(code)
}

// SubjectEntities returns the published subjects among preselected. When
// none qualify, every published subject is loaded. Results are translated
// to locale.
func (p *Provider) SubjectEntities(ctx context.Context, locale string, preselected ...Subject) []Subject {
	var list []Subject
	for _, s := range preselected {
		if s.ID > 0 && s.Published {
			list = append(list, s)
		}
	}

	if len(list) == 0 {
		all, err := p.repo.Published(ctx)
		if err != nil {
			p.log.Errorf("Cannot load subjects: %v", err)
			return nil
		}
		list = all
	}

	out := make([]Subject, 0, len(list))
	for _, s := range list {
		out = append(out, s.Translate(locale))
	}
	return out
}

// SubjectsByID loads the subjects with ids, skipping the missing ones.
func (p *Provider) SubjectsByID(ctx context.Context, ids ...int64) []Subject {
	var list []Subject
	for _, id := range ids {
		s, err := p.repo.Get(ctx, id)
		if err != nil {
			if !errors.Is(err, ErrSubjectNotFound) {
				p.log.Errorf("Cannot load subject %d: %v", id, err)
			}
			continue
		}
		list = append(list, s)
	}
	return list
}

// SubjectsInformation projects entities to a SubjectSet, dropping subjects
// without a mail field.
func (p *Provider) SubjectsInformation(entities []Subject) SubjectSet {
	items := make([]Info, 0, len(entities))
	for _, s := range entities {
		if !s.HasMail {
			continue
		}
		items = append(items, Info{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Weight:      s.Weight,
			Mail:        s.Mail,
		})
	}
	return NewSubjectSet(items)
}

// Subject returns a subject in locale. ok is false when it does not exist
// or cannot be read; read errors are logged.
func (p *Provider) Subject(ctx context.Context, locale string, id int64) (Subject, bool) {
	if id <= 0 {
		return Subject{}, false
	}
	s, err := p.repo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrSubjectNotFound) {
			p.log.Errorf("Cannot load subject %d: %v", id, err)
		}
		return Subject{}, false
	}
	return s.Translate(locale), true
}
