package errlog

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Classify normalizes a heterogeneous failure into a Kind.
// statusCode may be zero when no HTTP response was received.
func Classify(err error, statusCode int) Kind {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthentication
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	}
	if err == nil {
		return KindBusiness
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindBusiness
}
