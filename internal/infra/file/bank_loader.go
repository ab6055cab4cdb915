package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"exam-progress-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// record is the on-disk shape of a bank entry. Options are flattened so the
// file stays editable as a spreadsheet export.
type record struct {
	ID          int    `json:"id" yaml:"id"`
	Topic       string `json:"topic" yaml:"topic"`
	Question    string `json:"question" yaml:"question"`
	OptionA     string `json:"option_a" yaml:"option_a"`
	OptionB     string `json:"option_b" yaml:"option_b"`
	OptionC     string `json:"option_c" yaml:"option_c"`
	OptionD     string `json:"option_d" yaml:"option_d"`
	Answer      string `json:"answer" yaml:"answer"`
	Explanation string `json:"explanation" yaml:"explanation"`
}

// BankLoader reads the question bank from a JSON or YAML file. The format is
// picked by extension; anything other than .yaml/.yml is parsed as JSON.
type BankLoader struct {
	path string
}

func NewBankLoader(path string) *BankLoader {
	return &BankLoader{path: path}
}

func (l *BankLoader) LoadBank(_ context.Context) ([]domain.Question, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read bank file: %w", err)
	}
	return Parse(raw, filepath.Ext(l.path))
}

// Parse decodes bank records and keeps their file order.
func Parse(raw []byte, ext string) ([]domain.Question, error) {
	var records []record
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("parse yaml bank: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("parse json bank: %w", err)
		}
	}

	questions := make([]domain.Question, 0, len(records))
	for _, r := range records {
		questions = append(questions, domain.Question{
			ID:          r.ID,
			Topic:       r.Topic,
			Prompt:      r.Question,
			Options:     [4]string{r.OptionA, r.OptionB, r.OptionC, r.OptionD},
			Answer:      strings.TrimSpace(r.Answer),
			Explanation: r.Explanation,
		})
	}
	return questions, nil
}
