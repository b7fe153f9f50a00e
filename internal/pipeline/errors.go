package pipeline

import "errors"

// IntegrationError is a run failure. Exposed errors carry a message meant for
// the end user rather than an internal diagnostic.
type IntegrationError struct {
	Message string
	Expose  bool
	Err     error
}

func (e *IntegrationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}

// Is matches IntegrationErrors by message.
func (e *IntegrationError) Is(target error) bool {
	t, ok := target.(*IntegrationError)
	return ok && t.Message == e.Message
}

// ErrProviderFetch aborts a run whose provider data is incomplete.
var ErrProviderFetch = &IntegrationError{
	Message: "Failed to fetch data from provider",
	Expose:  true,
}

// Exposed reports whether err carries a user-facing message and returns it.
func Exposed(err error) (string, bool) {
	var ie *IntegrationError
	if errors.As(err, &ie) && ie.Expose {
		return ie.Message, true
	}
	return "", false
}
