package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"survey-backend/models"
)

// Repository is the storage the Coordinator needs. Implementations return
// ErrSurveyNotFound and ErrDuplicateResponse (possibly wrapped).
type Repository interface {
	// FindSurvey resolves ref as a survey id or code.
	FindSurvey(ctx context.Context, ref string) (*models.Survey, error)
	ActiveQuestionCodes(ctx context.Context) ([]string, error)
	InsertResponseHeader(ctx context.Context, header *models.Response) error
	InsertAnswerItems(ctx context.Context, items []models.ResponseItem) error
	// WithTransaction runs fn against a Repository bound to one transaction;
	// a non-nil error from fn rolls everything back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error
}

// Result is returned for an accepted submission.
type Result struct {
	ResponseID string
	AnsweredAt time.Time
	Items      []models.ResponseItem
}

// Coordinator runs the write path: validate, look up, gate, score, persist.
// It holds no per-request state and is safe for concurrent use.
type Coordinator struct {
	repo            Repository
	rules           ScoringRules
	unsetStatusOpen bool
	exactQuestions  bool
	now             func() time.Time
	newID           func() string
}

type Option func(*Coordinator)

func WithScoringRules(rules ScoringRules) Option {
	return func(c *Coordinator) { c.rules = rules }
}

// WithUnsetStatusOpen sets how a survey without a status is treated (default open).
func WithUnsetStatusOpen(open bool) Option {
	return func(c *Coordinator) { c.unsetStatusOpen = open }
}

// WithExactQuestionSet requires the submitted codes to equal the active question set.
func WithExactQuestionSet(exact bool) Option {
	return func(c *Coordinator) { c.exactQuestions = exact }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(repo Repository, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:            repo,
		rules:           DefaultScoringRules(),
		unsetStatusOpen: true,
		now:             func() time.Time { return time.Now().UTC() },
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit processes one submission for the survey under surveyCode.
// Every failure is a *Error; nothing is retried.
func (c *Coordinator) Submit(ctx context.Context, surveyCode string, req SubmitRequest) (*Result, error) {
	if c.repo == nil {
		return nil, newError(CodeInternal, "submission store unavailable", errors.New("nil repository"))
	}

	sub, err := Validate(req, surveyCode)
	if err != nil {
		return nil, err
	}

	survey, err := c.repo.FindSurvey(ctx, sub.SurveyID)
	if err != nil {
		if errors.Is(err, ErrSurveyNotFound) {
			return nil, newError(CodeNotFound, "survey not found", nil)
		}
		return nil, newError(CodeInternal, "failed to load survey", err)
	}
	if !strings.EqualFold(survey.Code, sub.SurveyCode) {
		return nil, newError(CodeNotFound, "survey not found", nil)
	}

	now := c.now()
	if err := CheckEligibility(survey, now, c.unsetStatusOpen); err != nil {
		return nil, err
	}

	if c.exactQuestions {
		if err := c.checkQuestionSet(ctx, sub.Items); err != nil {
			return nil, err
		}
	}

	header := &models.Response{
		ID:           c.newID(),
		SurveyID:     survey.ID,
		EmployeeID:   sub.EmployeeID,
		DepartmentID: sub.DepartmentID,
		AnsweredAt:   now,
	}

	var items []models.ResponseItem
	err = c.repo.WithTransaction(ctx, func(tx Repository) error {
		if err := tx.InsertResponseHeader(ctx, header); err != nil {
			if errors.Is(err, ErrDuplicateResponse) {
				return newError(CodeConflict, "a response for this survey has already been submitted", nil)
			}
			return newError(CodeInternal, "failed to save response", err)
		}

		items = c.score(header.ID, sub.Items)
		if err := tx.InsertAnswerItems(ctx, items); err != nil {
			return newError(CodeInternal, "failed to save response items", err)
		}
		return nil
	})
	if err != nil {
		var se *Error
		if !errors.As(err, &se) {
			// begin/commit failures surface here unclassified
			se = newError(CodeInternal, "failed to save response", err)
		}
		if se.Code == CodeInternal {
			log.WithFields(log.Fields{"survey_id": survey.ID, "code": se.Code}).WithError(se.Err).Error("submission failed")
		}
		return nil, se
	}

	log.WithFields(log.Fields{
		"survey_id":   survey.ID,
		"response_id": header.ID,
		"items":       len(items),
	}).Info("response submitted")

	return &Result{ResponseID: header.ID, AnsweredAt: now, Items: items}, nil
}

func (c *Coordinator) score(responseID string, answers []Answer) []models.ResponseItem {
	items := make([]models.ResponseItem, 0, len(answers))
	for _, a := range answers {
		items = append(items, models.ResponseItem{
			ResponseID:   responseID,
			QuestionCode: a.QuestionCode,
			RawScore:     a.RawScore,
			ScoredScore:  c.rules.Score(a.QuestionCode, a.RawScore),
		})
	}
	return items
}

func (c *Coordinator) checkQuestionSet(ctx context.Context, answers []Answer) error {
	codes, err := c.repo.ActiveQuestionCodes(ctx)
	if err != nil {
		return newError(CodeInternal, "failed to load questions", err)
	}
	active := make(map[string]bool, len(codes))
	for _, code := range codes {
		active[strings.ToUpper(code)] = true
	}

	answered := make(map[string]bool, len(answers))
	for i, a := range answers {
		key := strings.ToUpper(a.QuestionCode)
		if !active[key] {
			return validationError("question_code", i,
				fmt.Sprintf("items[%d].question_code %q is not an active question", i, a.QuestionCode))
		}
		answered[key] = true
	}
	for _, code := range codes {
		if !answered[strings.ToUpper(code)] {
			return validationError("items", -1, fmt.Sprintf("missing answer for question %q", code))
		}
	}
	return nil
}
