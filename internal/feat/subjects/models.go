package subjects

import (
	"sort"
	"strings"
)

// Subject is a published taxonomy term a visitor can write about.
type Subject struct {
	ID          int64
	Name        string
	Description string
	Weight      int
	// HasMail is false when the subject carries no mail field at all.
	// An empty Mail with HasMail set routes to the site address.
	HasMail      bool
	Mail         string
	Published    bool
	Translations map[string]Translation
}

// Translation holds the localized name and description of a subject.
type Translation struct {
	Name        string
	Description string
}

// Translate returns the subject in locale, or s when no translation exists.
func (s Subject) Translate(locale string) Subject {
	tr, ok := s.Translations[locale]
	if !ok {
		return s
	}
	if tr.Name != "" {
		s.Name = tr.Name
	}
	if tr.Description != "" {
		s.Description = tr.Description
	}
	return s
}

// Info is the projection of a subject used by the contact form.
type Info struct {
	ID          int64
	Name        string
	Description string
	Weight      int
	Mail        string
}

// SubjectSet is an ordered collection of Info indexed by id.
type SubjectSet struct {
	Items []Info
	byID  map[int64]int
}

// NewSubjectSet orders items by weight, then case-insensitive name.
func NewSubjectSet(items []Info) SubjectSet {
	sorted := make([]Info, len(items))
	copy(sorted, items)

	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight < sorted[j].Weight
	})

	set := SubjectSet{Items: sorted, byID: make(map[int64]int, len(sorted))}
	for i, it := range sorted {
		set.byID[it.ID] = i
	}
	return set
}

// Get returns the subject with id.
func (s SubjectSet) Get(id int64) (Info, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Info{}, false
	}
	return s.Items[i], true
}

// Len returns the number of subjects.
func (s SubjectSet) Len() int {
	return len(s.Items)
}

// IDs returns subject ids in order.
func (s SubjectSet) IDs() []int64 {
	ids := make([]int64, 0, len(s.Items))
	for _, it := range s.Items {
		ids = append(ids, it.ID)
	}
	return ids
}
