package translator

import "errors"

var (
	ErrUnrecognized       = errors.New("UNRECOGNIZED_QUERY")
	ErrUnknownField       = errors.New("UNKNOWN_FIELD")
	ErrTypeMismatch       = errors.New("TYPE_MISMATCH")
	ErrMalformedLimit     = errors.New("MALFORMED_LIMIT")
	ErrMalformedFragments = errors.New("MALFORMED_FRAGMENTS")
	ErrUnsupportedBackend = errors.New("UNSUPPORTED_BACKEND")
	ErrMissingTarget      = errors.New("MISSING_TARGET")
	ErrInvalidVocabulary  = errors.New("INVALID_VOCABULARY")
	ErrInvalidCatalog     = errors.New("INVALID_CATALOG")
)

var codedErrors = []error{
	ErrUnrecognized,
	ErrUnknownField,
	ErrTypeMismatch,
	ErrMalformedLimit,
	ErrMalformedFragments,
	ErrUnsupportedBackend,
	ErrMissingTarget,
	ErrInvalidVocabulary,
	ErrInvalidCatalog,
}

// Code returns the stable error code carried by err, or "TRANSLATION_FAILED"
// when err does not wrap one of the translator sentinels.
func Code(err error) string {
	for _, sentinel := range codedErrors {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "TRANSLATION_FAILED"
}
