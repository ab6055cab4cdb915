package domain

import (
	"math"
	"strconv"
)

// Grade scores answers (question id -> option letter) against the resolved
// question set. Letters are compared exactly; a missing answer is incorrect.
func Grade(session int, questions []Question, answers map[int]string) GradeResult {
	result := GradeResult{
		SessionID:   session,
		QuestionIDs: make([]int, 0, len(questions)),
		Correct:     make(map[int]bool, len(questions)),
		Total:       len(questions),
	}
	for _, q := range questions {
		given, ok := answers[q.ID]
		correct := ok && given == q.Answer
		result.Correct[q.ID] = correct
		result.QuestionIDs = append(result.QuestionIDs, q.ID)
		if correct {
			result.CorrectCount++
		}
	}
	if result.Total > 0 {
		result.Percentage = int(math.Round(float64(result.CorrectCount) / float64(result.Total) * 100))
	}
	result.Passed = result.Total > 0 && result.CorrectCount == result.Total
	return result
}

// ParseAnswers converts a wire answer map keyed by question id strings.
// Keys that are not integers are dropped.
func ParseAnswers(raw map[string]string) map[int]string {
	out := make(map[int]string, len(raw))
	for key, letter := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		out[id] = letter
	}
	return out
}

// FormatAnswers converts draft option indexes into the wire answer map.
func FormatAnswers(drafts map[int]int) map[string]string {
	out := make(map[string]string, len(drafts))
	for id, option := range drafts {
		if letter := OptionLetter(option); letter != "" {
			out[strconv.Itoa(id)] = letter
		}
	}
	return out
}
