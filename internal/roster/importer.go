package roster

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/kozaktomas/attendance-scanner/internal/database"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout accepted by Import:
//
//	classes:
//	  - class_id: 10A
//	    students: [Alice, Bob]
//	    subjects:
//	      - teacher: Mr. X
//	        subject: Math
//	        start_time: "09:00"
//	        late_time: "09:15 AM"
type SeedFile struct {
	Classes []database.ClassGroup `yaml:"classes"`
}

// ImportResult counts what Import changed.
type ImportResult struct {
	ClassesCreated  int
	SubjectsAdded   int
	StudentsAdded   int
	SubjectsSkipped int
}

// ParseSeed decodes a seed document.
func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for i, c := range seed.Classes {
		if c.ClassID == "" {
			return nil, fmt.Errorf("class #%d: %w", i+1, ErrEmptyClassID)
		}
	}
	return &seed, nil
}

// ImportFile reads path and applies it with Import.
func (s *Service) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, seed)
}

// Import merges the seed into the store. Existing classes are kept; subjects
// whose name already exists in the class are skipped, students are added
// with set semantics.
func (s *Service) Import(ctx context.Context, seed *SeedFile) (*ImportResult, error) {
	result := &ImportResult{}
	for _, c := range seed.Classes {
		created, err := s.Create(ctx, c.ClassID)
		if err != nil {
			return result, err
		}
		if created {
			result.ClassesCreated++
		}

		existing, err := s.Get(ctx, c.ClassID)
		if err != nil {
			return result, err
		}
		for _, subject := range c.Subjects {
			if slices.ContainsFunc(existing.Subjects, func(e database.Subject) bool { return e.Name == subject.Name }) {
				result.SubjectsSkipped++
				continue
			}
			if _, err := s.AddSubject(ctx, c.ClassID, subject); err != nil {
				return result, fmt.Errorf("class %s: %w", c.ClassID, err)
			}
			result.SubjectsAdded++
		}
		for _, student := range c.Students {
			if slices.Contains(existing.Students, student) {
				continue
			}
			if err := s.AddStudent(ctx, c.ClassID, student); err != nil {
				return result, fmt.Errorf("class %s: %w", c.ClassID, err)
			}
			result.StudentsAdded++
		}
	}
	return result, nil
}
