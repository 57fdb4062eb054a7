// Package store persists session answers as key/value records. Backends keep
// well-known keys in dedicated tables, every write records its time, and each
// change can be broadcast to other processes sharing the backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	CodeUnavailable = "unavailable"
	CodeEncoding    = "encoding"
	CodeValidation  = "validation"
	CodeInternal    = "internal"
)

type Error struct {
	Code      string
	Message   string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so errors.Is(err, ErrUnavailable)
// holds for every unavailable failure.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var ErrUnavailable = &Error{Code: CodeUnavailable, Message: "store unavailable", Transient: true}

func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &Error{Code: CodeUnavailable, Message: op, Transient: true, Err: err}
}

// Table names. Keys not listed in routes land in TableKV.
const (
	TableKV        = "kv"
	TableSurveys   = "surveys"
	TableSimulated = "simulated"
	TableForms     = "forms"
	TableUsers     = "users"
	TableTexts     = "texts"
	TableSchemas   = "schemas"
)

// Tables lists every table a backend must provide.
var Tables = []string{TableKV, TableSurveys, TableSimulated, TableForms, TableUsers, TableTexts, TableSchemas}

// Well-known record keys.
const (
	KeyAnswers          = "feasibilityStudyAnswers"
	KeySimulatedAnswers = "simulatedFeasibilityAnswers"
	KeyStartForm        = "startFeasibilityForm"
	KeyUserInfo         = "userInfo"
	KeySurveyData       = "surveyData"
	KeyLanguage         = "preferredLanguage"
	KeyComparison       = "comparisonAnswers"
	KeyLastUpdate       = "lastDataUpdate"
	KeyUnifiedSchema    = "feasibilityUnifiedSchema"
)

var routes = map[string]string{
	KeyAnswers:          TableSurveys,
	KeySimulatedAnswers: TableSimulated,
	KeyStartForm:        TableForms,
	KeyUserInfo:         TableUsers,
	"userName":          TableUsers,
	"userEmail":         TableUsers,
	"userCountry":       TableUsers,
	"userCity":          TableUsers,
	"userPhone":         TableUsers,
	KeySurveyData:       TableTexts,
	KeyLanguage:         TableTexts,
	KeyComparison:       TableTexts,
	KeyLastUpdate:       TableTexts,
	KeyUnifiedSchema:    TableSchemas,
}

// Route returns the table that holds key.
func Route(key string) string {
	if t, ok := routes[key]; ok {
		return t
	}
	return TableKV
}

type Entry struct {
	Table     string
	Value     []byte
	UpdatedAt time.Time
}

// Backend is raw storage scoped by session id. Put and Delete return the
// previous value (nil when there was none) so changes can be broadcast.
type Backend interface {
	Get(ctx context.Context, session, key string) (Entry, bool, error)
	Put(ctx context.Context, session, key string, value []byte, at time.Time) ([]byte, error)
	Delete(ctx context.Context, session, key string) ([]byte, error)
	Ping(ctx context.Context) error
	Close() error
}

func validateKey(session, key string) error {
	if session == "" || key == "" {
		return &Error{Code: CodeValidation, Message: "session and key are required"}
	}
	return nil
}
