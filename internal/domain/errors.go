package domain

import (
	"errors"
	"net/http"
)

// Error kinds. Match with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrUpstream   = errors.New("upstream error")
	ErrValidation = errors.New("validation error")
	ErrStore      = errors.New("store error")
)

// Stage names a step of the enrichment state machine.
type Stage string

const (
	StageValidate     Stage = "validate"
	StageGeocode      Stage = "geocode"
	StageTransactions Stage = "transactions"
	StageDiagnostics  Stage = "diagnostics"
	StageEnergyCost   Stage = "energy_cost"
	StageIndicators   Stage = "indicators"
	StagePersist      Stage = "persist"
	StageListUsers    Stage = "list_users"
)

// Error is a classified failure of one enrichment stage.
type Error struct {
	Kind  error
	Stage Stage
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	msg := string(e.Stage) + ": " + e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports that a stage got zero matching records.
func NotFound(stage Stage, msg string) *Error {
	return &Error{Kind: ErrNotFound, Stage: stage, Msg: msg}
}

// Upstream reports a transport failure or an unparseable upstream response.
func Upstream(stage Stage, msg string, err error) *Error {
	return &Error{Kind: ErrUpstream, Stage: stage, Msg: msg, Err: err}
}

// Validation reports missing or empty required input.
func Validation(msg string) *Error {
	return &Error{Kind: ErrValidation, Stage: StageValidate, Msg: msg}
}

// Store reports a persistence failure.
func Store(stage Stage, msg string, err error) *Error {
	return &Error{Kind: ErrStore, Stage: stage, Msg: msg, Err: err}
}

// StageOf returns the stage recorded on err, or "" when err is unclassified.
func StageOf(err error) Stage {
	var de *Error
	if errors.As(err, &de) {
		return de.Stage
	}
	return ""
}

// HTTPStatus maps an enrichment error to the status returned to
// single-address callers.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
