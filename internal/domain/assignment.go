package domain

// SliceQuestions returns the deterministic slice of the bank for a session:
// indices [SessionSize*(n-1), SessionSize*n), truncated at the end of the bank.
func SliceQuestions(bank []Question, session int) ([]Question, error) {
	if !ValidSession(session) {
		return nil, ErrInvalidSession
	}
	start := (session - 1) * SessionSize
	end := session * SessionSize
	if start >= len(bank) {
		return []Question{}, nil
	}
	if end > len(bank) {
		end = len(bank)
	}
	return append([]Question{}, bank[start:end]...), nil
}

// InSlice reports whether every id belongs to the session's deterministic slice.
func InSlice(bank []Question, session int, ids []int) bool {
	slice, err := SliceQuestions(bank, session)
	if err != nil {
		return false
	}
	members := make(map[int]struct{}, len(slice))
	for _, q := range slice {
		members[q.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := members[id]; !ok {
			return false
		}
	}
	return true
}

// DrawRandom picks up to count questions at random, skipping excluded ids and
// any prompt text already taken by an earlier candidate. It also returns the
// size of the candidate pool.
func DrawRandom(bank []Question, exclude map[int]struct{}, count int, shuffle Shuffler) ([]Question, int) {
	if count <= 0 {
		count = DefaultDrawCount
	}
	seenPrompt := make(map[string]struct{}, len(bank))
	pool := make([]Question, 0, len(bank))
	for _, q := range bank {
		if _, skip := exclude[q.ID]; skip {
			continue
		}
		if _, dup := seenPrompt[q.Prompt]; dup {
			continue
		}
		seenPrompt[q.Prompt] = struct{}{}
		pool = append(pool, q)
	}

	shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if count > len(pool) {
		count = len(pool)
	}
	return pool[:count], len(pool)
}

// Batch returns the questions for ids in the order given. Unknown ids are skipped.
func Batch(bank []Question, ids []int) []Question {
	byID := make(map[int]Question, len(bank))
	for _, q := range bank {
		byID[q.ID] = q
	}
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q)
		}
	}
	return out
}

// IDs lists question identifiers in order.
func IDs(questions []Question) []int {
	out := make([]int, 0, len(questions))
	for _, q := range questions {
		out = append(out, q.ID)
	}
	return out
}

// IDSet builds a lookup set from ids.
func IDSet(ids []int) map[int]struct{} {
	out := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
