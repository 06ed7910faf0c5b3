package scraper

import (
	"errors"
	"fmt"
)

// Request is one address to resolve. Callers pass normalized values, which
// are typed into the form as given; autocomplete read-backs are compared in
// normalized form.
type Request struct {
	Commune string `json:"commune"`
	Street  string `json:"street"`
	Number  string `json:"number"`
}

// Outcome is the tagged result of a pipeline run: exactly one of PostalCode
// or Error is set.
type Outcome struct {
	PostalCode string `json:"postalCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Success builds a successful outcome.
func Success(code string) Outcome {
	return Outcome{PostalCode: code}
}

// Failure builds a failed outcome from err.
func Failure(err error) Outcome {
	msg := "unknown failure"
	if err != nil {
		msg = err.Error()
	}
	return Outcome{Error: "Scraper failed: " + msg}
}

// OK reports whether the outcome carries a postal code.
func (o Outcome) OK() bool {
	return o.Error == "" && o.PostalCode != ""
}

// Step names a pipeline stage.
type Step string

// Pipeline stages, in execution order.
const (
	StepNavigate     Step = "navigate"
	StepCommune      Step = "commune"
	StepStreet       Step = "street"
	StepNumber       Step = "number"
	StepAwaitEnabled Step = "await_enabled"
	StepSubmit       Step = "submit"
	StepAwaitResult  Step = "await_result"
	StepExtract      Step = "extract"
)

// Failure kinds surfaced inside Outcome.Error.
var (
	ErrNavigation        = errors.New("target page did not load")
	ErrFieldVerification = errors.New("autocomplete value was not applied")
	ErrEmptyField        = errors.New("field value is empty")
	ErrNumberMismatch    = errors.New("number field mismatch")
	ErrControlNotEnabled = errors.New("search button did not become enabled in time")
	ErrResultNotVisible  = errors.New("result element did not become visible")
	ErrEmptyResult       = errors.New("empty postal code")
)

// StepError ties a failure to the step that produced it.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FieldError reports a form field whose read-back value did not match.
type FieldError struct {
	Field    string
	Attempts int
	Expected string
	Actual   string
	Err      error
}

func (e *FieldError) Error() string {
	if errors.Is(e.Err, ErrEmptyField) {
		return fmt.Sprintf("%s value is empty after normalization", e.Field)
	}
	if errors.Is(e.Err, ErrNumberMismatch) {
		return fmt.Sprintf("%s field not filled correctly: expected '%s', got '%s'", e.Field, e.Expected, e.Actual)
	}
	return fmt.Sprintf("failed to select %s correctly after %d attempts (last value '%s')", e.Field, e.Attempts, e.Actual)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
