package subjects

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/stereo-express/touch/pkg/cl/logger"
	"gopkg.in/yaml.v3"
)

// seedFile is the layout of the subjects YAML file.
type seedFile struct {
	Subjects []seedSubject `yaml:"subjects"`
}

type seedSubject struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Weight      int    `yaml:"weight"`
	// nil when the key is absent: the subject has no mail field
	Mail         *string                `yaml:"mail"`
	Published    *bool                  `yaml:"published"`
	Translations map[string]Translation `yaml:"translations"`
}

// Seeder upserts the subjects of a YAML file at startup.
type Seeder struct {
	repo Repository
	path string
	log  logger.Logger
}

// NewSeeder creates a seeder for the file at path. An empty path disables it.
func NewSeeder(repo Repository, path string, log logger.Logger) *Seeder {
	return &Seeder{repo: repo, path: path, log: log}
}

// Start seeds the subjects file if one is configured and present.
func (s *Seeder) Start(ctx context.Context) error {
	if s.path == "" {
		s.log.Info("No subjects file configured, skipping subject seeding")
		return nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Infof("Subjects file %s not found, skipping subject seeding", s.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot read subjects file: %w", err)
	}

	list, err := ParseSeed(data)
	if err != nil {
		return err
	}

	for _, subj := range list {
		if err := s.repo.Upsert(ctx, subj); err != nil {
			return err
		}
	}

	s.log.Infof("Seeded %d subject(s) from %s", len(list), s.path)
	return nil
}

// ParseSeed decodes a subjects YAML document.
func ParseSeed(data []byte) ([]Subject, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("cannot parse subjects file: %w", err)
	}

	list := make([]Subject, 0, len(f.Subjects))
	for i, ss := range f.Subjects {
		if ss.ID <= 0 {
			return nil, fmt.Errorf("subject #%d: id must be positive", i+1)
		}
		if ss.Name == "" {
			return nil, fmt.Errorf("subject %d: name is required", ss.ID)
		}

		subj := Subject{
			ID:           ss.ID,
			Name:         ss.Name,
			Description:  ss.Description,
			Weight:       ss.Weight,
			Published:    true,
			Translations: ss.Translations,
		}
		if ss.Mail != nil {
			subj.HasMail = true
			subj.Mail = *ss.Mail
		}
		if ss.Published != nil {
			subj.Published = *ss.Published
		}
		list = append(list, subj)
	}
	return list, nil
}
