package domain

import "strings"

// ValidateBank checks the records of a question bank before it is served.
func ValidateBank(bank []Question) error {
	seen := make(map[int]struct{}, len(bank))
	for i, q := range bank {
		if q.ID <= 0 {
			return Invalid("question %d: id must be positive", i)
		}
		if _, dup := seen[q.ID]; dup {
			return Invalid("question %d: duplicate id", q.ID)
		}
		seen[q.ID] = struct{}{}
		if strings.TrimSpace(q.Prompt) == "" {
			return Invalid("question %d: prompt is empty", q.ID)
		}
		for j, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return Invalid("question %d: option %s is empty", q.ID, OptionLetter(j))
			}
		}
		if q.CorrectIndex() < 0 {
			return Invalid("question %d: answer %q must be one of A, B, C, D", q.ID, q.Answer)
		}
	}
	return nil
}
