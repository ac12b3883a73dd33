package submission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"survey-backend/utils"
)

// SubmitRequest is the JSON body of a submission, as decoded from the wire.
type SubmitRequest struct {
	SurveyID     string        `json:"survey_id" validate:"required,nocontrol"`
	EmployeeID   string        `json:"employee_id" validate:"required,max=128,nocontrol"`
	DepartmentID *string       `json:"department_id" validate:"omitempty,max=36,nocontrol"`
	Items        []ItemRequest `json:"items" validate:"required,min=1"`
}

// ItemRequest keeps raw_score undecoded so non-integers can be reported per item.
type ItemRequest struct {
	QuestionCode string          `json:"question_code" validate:"required,max=32,nocontrol"`
	RawScore     json.RawMessage `json:"raw_score" validate:"likert"`

	// badField names the member that could not be decoded, "items" when the
	// element itself is not an object.
	badField string
}

// UnmarshalJSON never fails so that a wrongly typed item is reported by
// Validate with its index instead of rejecting the whole body.
func (it *ItemRequest) UnmarshalJSON(data []byte) error {
	*it = ItemRequest{}

	var fields struct {
		QuestionCode json.RawMessage `json:"question_code"`
		RawScore     json.RawMessage `json:"raw_score"`
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' || json.Unmarshal(trimmed, &fields) != nil {
		it.badField = "items"
		return nil
	}

	it.RawScore = fields.RawScore
	if qc := bytes.TrimSpace(fields.QuestionCode); len(qc) > 0 && !bytes.Equal(qc, []byte("null")) {
		if err := json.Unmarshal(qc, &it.QuestionCode); err != nil {
			it.QuestionCode = ""
			it.badField = "question_code"
		}
	}
	return nil
}

// Answer is a validated item.
type Answer struct {
	QuestionCode string
	RawScore     int
}

// Submission is a validated request, ready for the Coordinator.
type Submission struct {
	SurveyCode   string
	SurveyID     string
	EmployeeID   string
	DepartmentID *string
	Items        []Answer
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json names so messages match the payload.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("likert", func(fl validator.FieldLevel) bool {
		raw, ok := fl.Field().Interface().(json.RawMessage)
		if !ok {
			return false
		}
		_, err := parseScore(raw)
		return err == nil
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("nocontrol", func(fl validator.FieldLevel) bool {
		return !hasControlRune(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

func hasControlRune(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

// Validate type-checks req against the domain constraints. The first failing
// field wins; item failures carry the item index.
func Validate(req SubmitRequest, surveyCode string) (*Submission, error) {
	surveyCode = strings.TrimSpace(surveyCode)
	if surveyCode == "" {
		return nil, validationError("survey_code", -1, "survey code is required")
	}
	if hasControlRune(surveyCode) {
		return nil, validationError("survey_code", -1, "survey code contains control characters")
	}

	utils.NormalizeDTO(&req)
	if err := validate.Struct(req); err != nil {
		return nil, fromValidatorError(err, -1)
	}

	sub := &Submission{
		SurveyCode:   surveyCode,
		SurveyID:     req.SurveyID,
		EmployeeID:   req.EmployeeID,
		DepartmentID: req.DepartmentID,
		Items:        make([]Answer, 0, len(req.Items)),
	}

	seen := make(map[string]int, len(req.Items))
	for i := range req.Items {
		item := req.Items[i]
		switch item.badField {
		case "items":
			return nil, validationError("items", i, fmt.Sprintf("items[%d] must be an object", i))
		case "question_code":
			return nil, validationError("question_code", i, fmt.Sprintf("items[%d].question_code is invalid", i))
		}
		utils.NormalizeDTO(&item)
		if err := validate.Struct(item); err != nil {
			return nil, fromValidatorError(err, i)
		}
		score, _ := parseScore(item.RawScore)

		key := strings.ToUpper(item.QuestionCode)
		if first, dup := seen[key]; dup {
			return nil, validationError("question_code", i,
				fmt.Sprintf("items[%d].question_code %q duplicates items[%d]", i, item.QuestionCode, first))
		}
		seen[key] = i

		sub.Items = append(sub.Items, Answer{QuestionCode: item.QuestionCode, RawScore: score})
	}
	return sub, nil
}

func fromValidatorError(err error, index int) *Error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return validationError("", index, "invalid request")
	}
	fe := ves[0]
	field := fe.Field()

	if index >= 0 {
		switch field {
		case "question_code":
			return validationError(field, index, fmt.Sprintf("items[%d].question_code is invalid", index))
		default:
			return validationError(field, index,
				fmt.Sprintf("items[%d].raw_score must be an integer between %d and %d", index, MinScore, MaxScore))
		}
	}

	switch fe.Tag() {
	case "required":
		if field == "items" {
			return validationError(field, -1, "items must contain at least one answer")
		}
		return validationError(field, -1, field+" is required")
	case "min":
		return validationError(field, -1, "items must contain at least one answer")
	case "max":
		return validationError(field, -1, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
	case "nocontrol":
		return validationError(field, -1, field+" contains control characters")
	default:
		return validationError(field, -1, field+" is invalid")
	}
}

var errNotLikert = errors.New("not a likert score")

// parseScore accepts JSON numbers with no fractional part in [MinScore, MaxScore].
func parseScore(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || bytes.Equal(raw, []byte("null")) {
		return 0, errNotLikert
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, errNotLikert
	}
	if math.Trunc(f) != f || f < MinScore || f > MaxScore {
		return 0, errNotLikert
	}
	return int(f), nil
}
