package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNetwork wraps transport failures talking to the backend.
var ErrNetwork = errors.New("network")

// RemoteError is a non-2xx answer from the backend.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

// Reason is the text shown to the operator for a failed backend call.
func Reason(err error) string {
	var re *RemoteError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &re):
		if re.Message != "" {
			return re.Message
		}
		return http.StatusText(re.Status)
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return err.Error()
	}
}
