package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"exam-progress-service/internal/app"
	"exam-progress-service/internal/client"
	"exam-progress-service/internal/config"
	"exam-progress-service/internal/domain"
	"github.com/spf13/cobra"
)

const defaultProfile = "default"

// practiceEnv is the local side of a practice run: progress in a SQLite file,
// questions and grading from the server.
type practiceEnv struct {
	store   *client.LocalStore
	remote  *client.Client
	tracker *app.Tracker
	syncer  *client.Syncer
	profile string
}

func openPractice(configPath, profile string) (*practiceEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	baseURL := cfg.Client.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	dbPath := cfg.Client.DBPath
	if dbPath == "" {
		dbPath = "exam-progress.db"
	}

	store, err := client.OpenLocalStore(dbPath)
	if err != nil {
		return nil, err
	}
	remote := client.New(baseURL, cfg.Client.Token, nil)
	return &practiceEnv{
		store:   store,
		remote:  remote,
		tracker: app.NewTracker(store, remote, remote),
		syncer:  client.NewSyncer(store, remote, profile),
		profile: profile,
	}, nil
}

// NewPracticeCmd groups the local practice commands.
func NewPracticeCmd(configPath *string) *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Work through sessions locally and sync progress with the server",
	}
	cmd.PersistentFlags().StringVar(&profile, "profile", defaultProfile, "local progress profile")

	run := func(fn func(ctx context.Context, env *practiceEnv, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			env, err := openPractice(*configPath, profile)
			if err != nil {
				return err
			}
			defer env.store.Close()
			return fn(cmd.Context(), env, cmd.OutOrStdout(), args)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the state of every session",
		RunE:  run(practiceStatus),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "session <n>",
		Short: "Load a session, drawing its questions on first use",
		Args:  cobra.ExactArgs(1),
		RunE:  run(practiceSession),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "answer <n> <questionId> <A-D>",
		Short: "Save a draft answer",
		Args:  cobra.ExactArgs(3),
		RunE:  run(practiceAnswer),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "submit <n>",
		Short: "Grade the draft answers of a session",
		Args:  cobra.ExactArgs(1),
		RunE:  run(practiceSubmit),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "retry <n>",
		Short: "Clear answers and reshuffle a session",
		Args:  cobra.ExactArgs(1),
		RunE:  run(practiceRetry),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Reconcile local progress with the server",
		RunE:  run(practiceSync),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Delete local and server progress and history",
		RunE:  run(practiceReset),
	})
	return cmd
}

func practiceStatus(ctx context.Context, env *practiceEnv, out io.Writer, _ []string) error {
	p, err := env.tracker.Progress(ctx, env.profile)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "current session: %d  mastered: %d  updated: %s\n",
		p.CurrentSession, len(p.MasteredQuestionIDs), p.LastUpdated.Format("2006-01-02 15:04:05"))
	for s := 1; s <= domain.SessionCount; s++ {
		fmt.Fprintf(out, "  %2d  %s\n", s, p.State(s))
	}
	return nil
}

func practiceSession(ctx context.Context, env *practiceEnv, out io.Writer, args []string) error {
	session, err := parseSession(args[0])
	if err != nil {
		return err
	}
	view, err := env.tracker.LoadSession(ctx, env.profile, session)
	if err != nil {
		return err
	}
	printSession(out, view)
	return nil
}

func practiceAnswer(ctx context.Context, env *practiceEnv, out io.Writer, args []string) error {
	session, err := parseSession(args[0])
	if err != nil {
		return err
	}
	questionID, err := strconv.Atoi(args[1])
	if err != nil {
		return domain.Invalid("question id must be a number")
	}
	letter := strings.ToUpper(strings.TrimSpace(args[2]))
	option := domain.Question{Answer: letter}.CorrectIndex()
	if option < 0 {
		return domain.Invalid("answer must be one of A, B, C, D")
	}
	p, err := env.tracker.SaveAnswer(ctx, env.profile, session, questionID, option)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "saved %s for question %d (%d answered in session %d)\n",
		letter, questionID, len(p.Answers(session)), session)
	return nil
}

func practiceSubmit(ctx context.Context, env *practiceEnv, out io.Writer, args []string) error {
	session, err := parseSession(args[0])
	if err != nil {
		return err
	}
	grade, p, err := env.tracker.Submit(ctx, env.profile, session)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d/%d correct (%d%%)\n", grade.CorrectCount, grade.Total, grade.Percentage)
	if grade.Passed {
		fmt.Fprintf(out, "session %d passed; current session is now %d\n", session, p.CurrentSession)
	} else {
		fmt.Fprintln(out, "100% is required to continue; run retry to try again")
	}
	return nil
}

func practiceRetry(ctx context.Context, env *practiceEnv, out io.Writer, args []string) error {
	session, err := parseSession(args[0])
	if err != nil {
		return err
	}
	view, err := env.tracker.Retry(ctx, env.profile, session)
	if err != nil {
		return err
	}
	printSession(out, view)
	return nil
}

func practiceSync(ctx context.Context, env *practiceEnv, out io.Writer, _ []string) error {
	decision, err := env.syncer.Sync(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: current session %d, %d completed\n",
		decision.Action, decision.Progress.CurrentSession, len(decision.Progress.CompletedSessions))
	return nil
}

func practiceReset(ctx context.Context, env *practiceEnv, out io.Writer, _ []string) error {
	if err := env.syncer.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "progress reset")
	return nil
}

func parseSession(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || !domain.ValidSession(n) {
		return 0, domain.ErrInvalidSession
	}
	return n, nil
}

func printSession(out io.Writer, view app.SessionView) {
	fmt.Fprintf(out, "session %d (%s)\n", view.SessionID, view.State)
	for i, q := range view.Questions {
		marker := " "
		if opt, ok := view.Answers[q.ID]; ok {
			marker = domain.OptionLetter(opt)
		}
		fmt.Fprintf(out, "\n%2d. [%d] %s  (answer: %s)\n", i+1, q.ID, q.Prompt, marker)
		for j, opt := range q.Options {
			fmt.Fprintf(out, "     %s) %s\n", domain.OptionLetter(j), opt)
		}
	}
}
