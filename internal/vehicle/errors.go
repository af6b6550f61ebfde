package vehicle

import "fmt"

const (
	CodeInvalidIdentifier   = "invalid_identifier"
	CodeNotFound            = "not_found"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeUpstreamData        = "upstream_data"
	CodeInsightProvider     = "insight_provider"
	CodeInsightParse        = "insight_parse"
	CodeInternal            = "internal"
)

// Error is the structured failure kind every engine operation surfaces.
// Code is stable and machine-readable; Status is the HTTP mapping used at
// the API boundary.
type Error struct {
	Code      string
	Message   string
	Transient bool
	Status    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func statusForCode(code string) int {
	switch code {
	case CodeInvalidIdentifier:
		return 400
	case CodeNotFound:
		return 404
	case CodeUpstreamData, CodeInsightParse:
		return 502
	case CodeUpstreamUnavailable, CodeInsightProvider:
		return 503
	default:
		return 500
	}
}

func newError(code, message string, transient bool) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Transient: transient,
		Status:    statusForCode(code),
	}
}

func NewInvalidIdentifierError(message string) error {
	return newError(CodeInvalidIdentifier, message, false)
}

func NewNotFoundError(message string) error {
	return newError(CodeNotFound, message, false)
}

func NewUpstreamUnavailableError(message string) error {
	return newError(CodeUpstreamUnavailable, message, true)
}

func NewUpstreamDataError(message string) error {
	return newError(CodeUpstreamData, message, false)
}

func NewInsightProviderError(message string) error {
	return newError(CodeInsightProvider, message, true)
}

func NewInsightParseError(message string) error {
	return newError(CodeInsightParse, message, false)
}

func NewInternalError(message string) error {
	return newError(CodeInternal, message, true)
}
