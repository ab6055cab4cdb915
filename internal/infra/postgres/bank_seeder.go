package postgres

import (
	"context"

	"exam-progress-service/internal/domain"
	"github.com/uptrace/bun"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID          int    `bun:"id,pk"`
	Position    int    `bun:"position,notnull"`
	Topic       string `bun:"topic,notnull"`
	Question    string `bun:"question,notnull"`
	OptionA     string `bun:"option_a,notnull"`
	OptionB     string `bun:"option_b,notnull"`
	OptionC     string `bun:"option_c,notnull"`
	OptionD     string `bun:"option_d,notnull"`
	Answer      string `bun:"answer,notnull"`
	Explanation string `bun:"explanation,notnull"`
}

// SeedBank replaces the questions table with bank, keeping slice order as
// the served order.
func SeedBank(ctx context.Context, db *bun.DB, bank []domain.Question) (int, error) {
	if err := domain.ValidateBank(bank); err != nil {
		return 0, err
	}
	rows := make([]questionRow, 0, len(bank))
	for i, q := range bank {
		rows = append(rows, questionRow{
			ID:          q.ID,
			Position:    i + 1,
			Topic:       q.Topic,
			Question:    q.Prompt,
			OptionA:     q.Options[0],
			OptionB:     q.Options[1],
			OptionC:     q.Options[2],
			OptionD:     q.Options[3],
			Answer:      q.Answer,
			Explanation: q.Explanation,
		})
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*questionRow)(nil)).Where("TRUE").Exec(ctx); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
