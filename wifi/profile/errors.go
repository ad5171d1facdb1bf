package profile

import "errors"

var (
	// ErrUnsupportedBssType is returned by Create for networks that are not
	// infrastructure networks.
	ErrUnsupportedBssType = errors.New("unsupported bss type")
	// ErrUnsupportedCombination is returned by Create when no template exists
	// for the authentication and encryption pair.
	ErrUnsupportedCombination = errors.New("unsupported authentication and encryption combination")
	// ErrMalformedDocument is returned for documents that are not well formed.
	ErrMalformedDocument = errors.New("malformed profile document")
	// ErrUnknownNamespace is returned for documents outside the WLAN profile namespace.
	ErrUnknownNamespace = errors.New("unknown profile namespace")
	// ErrInvalidProfile is returned when a required field is missing or unrecognized.
	ErrInvalidProfile = errors.New("invalid profile")
)

// IsCodecError reports whether err came from creating or reading a document.
func IsCodecError(err error) bool {
	return errors.Is(err, ErrUnsupportedBssType) ||
		errors.Is(err, ErrUnsupportedCombination) ||
		errors.Is(err, ErrMalformedDocument) ||
		errors.Is(err, ErrUnknownNamespace) ||
		errors.Is(err, ErrInvalidProfile)
}
