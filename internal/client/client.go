package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"exam-progress-service/internal/app"
	"exam-progress-service/internal/domain"
)

// Client talks to the exam service over its JSON API. It implements
// app.QuestionSource and app.Grader so a local Tracker can drive sessions
// against a remote bank.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

type questionsResponse struct {
	Questions      []domain.QuestionView `json:"questions"`
	TotalAvailable int                   `json:"totalAvailable"`
}

type submitResponse struct {
	Success        bool            `json:"success"`
	CorrectCount   int             `json:"correctCount"`
	TotalQuestions int             `json:"totalQuestions"`
	Percentage     int             `json:"percentage"`
	Results        map[string]bool `json:"results"`
	Message        string          `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SessionQuestions fetches the deterministic slice for a session.
func (c *Client) SessionQuestions(ctx context.Context, session int) ([]domain.Question, error) {
	var resp questionsResponse
	if err := c.do(ctx, http.MethodGet, "/sessions/"+strconv.Itoa(session), nil, &resp); err != nil {
		return nil, err
	}
	return fromViews(resp.Questions), nil
}

func (c *Client) RandomQuestions(ctx context.Context, exclude []int, count int) ([]domain.Question, int, error) {
	body := map[string]any{"excludeIds": exclude, "count": count}
	var resp questionsResponse
	if err := c.do(ctx, http.MethodPost, "/questions/random", body, &resp); err != nil {
		return nil, 0, err
	}
	return fromViews(resp.Questions), resp.TotalAvailable, nil
}

func (c *Client) BatchQuestions(ctx context.Context, ids []int) ([]domain.Question, error) {
	var resp questionsResponse
	if err := c.do(ctx, http.MethodPost, "/questions/batch", map[string]any{"questionIds": ids}, &resp); err != nil {
		return nil, err
	}
	return fromViews(resp.Questions), nil
}

// Grade submits answers to the server. The graded question ids are taken
// from the per-question results so a pass can be folded into local mastery.
func (c *Client) Grade(ctx context.Context, req app.GradeRequest) (domain.GradeResult, error) {
	body := map[string]any{"session_id": req.SessionID, "answers": req.Answers}
	if len(req.QuestionIDs) > 0 {
		body["questionIds"] = req.QuestionIDs
	}
	var resp submitResponse
	if err := c.do(ctx, http.MethodPost, "/submit", body, &resp); err != nil {
		return domain.GradeResult{}, err
	}

	result := domain.GradeResult{
		SessionID:    req.SessionID,
		QuestionIDs:  make([]int, 0, len(resp.Results)),
		Correct:      make(map[int]bool, len(resp.Results)),
		CorrectCount: resp.CorrectCount,
		Total:        resp.TotalQuestions,
		Percentage:   resp.Percentage,
		Passed:       resp.Success,
	}
	for key, ok := range resp.Results {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		result.Correct[id] = ok
		result.QuestionIDs = append(result.QuestionIDs, id)
	}
	sort.Ints(result.QuestionIDs)
	return result, nil
}

// Progress fetches the server snapshot.
func (c *Client) Progress(ctx context.Context) (domain.Progress, error) {
	var p domain.Progress
	err := c.do(ctx, http.MethodGet, "/progress", nil, &p)
	return p, err
}

// Sync posts a local snapshot for reconciliation.
func (c *Client) Sync(ctx context.Context, p domain.Progress) (app.SyncDecision, error) {
	var decision app.SyncDecision
	err := c.do(ctx, http.MethodPost, "/progress/sync", p, &decision)
	return decision, err
}

// Reset clears server progress and history for the token's identity.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/progress/reset", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// statusError turns an error response back into the matching domain error.
func statusError(resp *http.Response) error {
	var body errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.TrimPrefix(msg, domain.ErrValidation.Error()+": "))
	case http.StatusUnauthorized:
		return domain.ErrUnauthenticated
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	default:
		return errors.New("server error: " + msg)
	}
}

func fromViews(views []domain.QuestionView) []domain.Question {
	out := make([]domain.Question, 0, len(views))
	for _, v := range views {
		q := domain.Question{
			ID:          v.ID,
			Topic:       v.Topic,
			Prompt:      v.Question,
			Options:     v.Options,
			Explanation: v.Explanation,
		}
		if v.CorrectAnswer != nil {
			q.Answer = domain.OptionLetter(*v.CorrectAnswer)
		}
		out = append(out, q)
	}
	return out
}
