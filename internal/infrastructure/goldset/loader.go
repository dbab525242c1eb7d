package goldset

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wramadhan/griya/internal/core/domain"
)

// goldFile is the on-disk layout: a version marker plus the question list.
type goldFile struct {
	Version   int                   `yaml:"version"`
	Questions []domain.GoldQuestion `yaml:"questions"`
}

// Load reads a gold set from a YAML file and validates it enough to fail
// fast on authoring mistakes instead of mid-run.
func Load(path string) ([]domain.GoldQuestion, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gold set: %w", err)
	}

	var file goldFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse gold set: %w", err)
	}
	if len(file.Questions) == 0 {
		return nil, fmt.Errorf("gold set %s has no questions", path)
	}

	seen := make(map[string]struct{}, len(file.Questions))
	for i, q := range file.Questions {
		if strings.TrimSpace(q.ID) == "" {
			return nil, fmt.Errorf("question %d: missing id", i)
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("question %s: duplicate id", q.ID)
		}
		seen[q.ID] = struct{}{}

		if strings.TrimSpace(q.Question) == "" {
			return nil, fmt.Errorf("question %s: missing question text", q.ID)
		}
		if q.Expected != domain.ExpectedHasData && q.Expected != domain.ExpectedNoData {
			return nil, fmt.Errorf("question %s: expected must be has_data or no_data, got %q", q.ID, q.Expected)
		}
		if q.Constraints.Price != nil {
			if err := validatePrice(q.Constraints.Price); err != nil {
				return nil, fmt.Errorf("question %s: %w", q.ID, err)
			}
		}
	}
	return file.Questions, nil
}

// LoadTerms reads the formal-to-colloquial vocabulary table used for
// query expansion.
func LoadTerms(path string) (domain.TermTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read term table: %w", err)
	}

	var terms domain.TermTable
	if err := yaml.Unmarshal(raw, &terms); err != nil {
		return nil, fmt.Errorf("parse term table: %w", err)
	}
	return terms, nil
}

func validatePrice(p *domain.PriceConstraint) error {
	shapes := 0
	if p.Min != nil || p.Max != nil {
		shapes++
	}
	if p.Around != nil {
		shapes++
	}
	if p.Colloquial != "" {
		shapes++
	}
	if shapes > 1 {
		return fmt.Errorf("price constraint mixes shapes")
	}
	if shapes == 0 {
		return fmt.Errorf("price constraint is empty")
	}
	return nil
}
