package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const jsonBank = `[
  {"id": 1, "topic": "networking", "question": "Which layer routes packets?", "option_a": "Transport", "option_b": "Network", "option_c": "Session", "option_d": "Physical", "answer": "B", "explanation": "IP lives at layer 3."},
  {"id": 2, "topic": "networking", "question": "Default HTTPS port?", "option_a": "80", "option_b": "8080", "option_c": "443", "option_d": "22", "answer": "C"}
]`

const yamlBank = `
- id: 1
  topic: storage
  question: Which command removes a key in Redis?
  option_a: GET
  option_b: DEL
  option_c: SET
  option_d: TTL
  answer: B
`

func TestBankLoaderReadsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.json")
	if err := os.WriteFile(path, []byte(jsonBank), 0o644); err != nil {
		t.Fatalf("write bank: %v", err)
	}

	bank, err := NewBankLoader(path).LoadBank(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(bank) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(bank))
	}
	q := bank[0]
	if q.ID != 1 || q.Prompt != "Which layer routes packets?" || q.Options[1] != "Network" || q.Answer != "B" {
		t.Fatalf("unexpected first question: %+v", q)
	}
	if q.CorrectIndex() != 1 {
		t.Fatalf("expected correct index 1, got %d", q.CorrectIndex())
	}
	if bank[1].ID != 2 {
		t.Fatalf("expected file order to be kept")
	}
}

func TestBankLoaderReadsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	if err := os.WriteFile(path, []byte(yamlBank), 0o644); err != nil {
		t.Fatalf("write bank: %v", err)
	}

	bank, err := NewBankLoader(path).LoadBank(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(bank) != 1 || bank[0].Topic != "storage" || bank[0].Options[3] != "TTL" {
		t.Fatalf("unexpected bank: %+v", bank)
	}
}

func TestBankLoaderMissingFile(t *testing.T) {
	_, err := NewBankLoader(filepath.Join(t.TempDir(), "nope.json")).LoadBank(context.Background())
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}
