package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names understood by the upstream API.
const (
	ParamStartIndex     = "startIndex"
	ParamResultsPerPage = "resultsPerPage"
)

// Defaults applied when a parameter is absent.
const (
	DefaultOffset         = 0
	DefaultResultsPerPage = 10
)

// ErrInvalidParam indicates a pagination parameter is not a non-negative integer.
var ErrInvalidParam = errors.New("must be a non-negative integer")

// ParamError names the pagination parameter that failed validation.
type ParamError struct {
	Param string
	Value string
}

// Error implements the error interface.
func (e *ParamError) Error() string {
	return fmt.Sprintf("%s parameter %v", e.Param, ErrInvalidParam)
}

// Unwrap lets errors.Is match ErrInvalidParam.
func (e *ParamError) Unwrap() error {
	return ErrInvalidParam
}

// Params are the validated client pagination parameters.
type Params struct {
	// Offset is the number of most recent records to skip
	Offset int

	// ResultsPerPage is the requested page size
	ResultsPerPage int
}

// ParseNonNegative parses raw as a base-10 integer >= 0.
// An empty raw value yields def.
func ParseNonNegative(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, ErrInvalidParam
	}
	return n, nil
}

// ParseOffset parses the client's startIndex offset.
func ParseOffset(values url.Values) (int, error) {
	raw := values.Get(ParamStartIndex)
	n, err := ParseNonNegative(raw, DefaultOffset)
	if err != nil {
		return 0, &ParamError{Param: ParamStartIndex, Value: raw}
	}
	return n, nil
}

// ParseResultsPerPage parses the client's resultsPerPage.
func ParseResultsPerPage(values url.Values) (int, error) {
	raw := values.Get(ParamResultsPerPage)
	n, err := ParseNonNegative(raw, DefaultResultsPerPage)
	if err != nil {
		return 0, &ParamError{Param: ParamResultsPerPage, Value: raw}
	}
	return n, nil
}

// ParseRequest validates both pagination parameters, startIndex first.
func ParseRequest(values url.Values) (Params, error) {
	offset, err := ParseOffset(values)
	if err != nil {
		return Params{}, err
	}

	perPage, err := ParseResultsPerPage(values)
	if err != nil {
		return Params{}, err
	}

	return Params{Offset: offset, ResultsPerPage: perPage}, nil
}

// Window is an upstream page request in absolute indexes.
type Window struct {
	StartIndex     int
	ResultsPerPage int
}

// Translate converts an offset-from-end into an upstream window:
// startIndex = total - offset - resultsPerPage.
//
// When fewer than resultsPerPage records remain before the offset, the
// window is clamped to start at 0 and shrinks to the remaining count, so it
// never reaches past the offset. Callers reject offset >= total beforehand.
func Translate(total, offset, resultsPerPage int) Window {
	start := total - offset - resultsPerPage
	if start >= 0 {
		return Window{StartIndex: start, ResultsPerPage: resultsPerPage}
	}

	remaining := total - offset
	if remaining < 0 {
		remaining = 0
	}
	return Window{StartIndex: 0, ResultsPerPage: remaining}
}

// Values renders the window as upstream query parameters.
func (w Window) Values() url.Values {
	return url.Values{
		ParamStartIndex:     []string{strconv.Itoa(w.StartIndex)},
		ParamResultsPerPage: []string{strconv.Itoa(w.ResultsPerPage)},
	}
}
