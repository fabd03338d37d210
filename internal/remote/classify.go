package remote

import (
	"context"
	"errors"
	"net/http"

	"gocloud.dev/gcerrors"
	"google.golang.org/api/googleapi"

	"github.com/rizkyfirmansyah/glad-alerts/internal/retry"
)

// Classify marks errors that retrying cannot fix as permanent. Rate limits,
// server errors and transport failures are left transient.
func Classify(err error) error {
	if err == nil || retry.IsPermanent(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrFolderNotFound) {
		return retry.Permanent(err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound:
			return retry.Permanent(err)
		case http.StatusForbidden:
			if isRateLimited(gerr) {
				return err
			}
			return retry.Permanent(err)
		}
		return err
	}

	switch gcerrors.Code(err) {
	case gcerrors.NotFound,
		gcerrors.PermissionDenied,
		gcerrors.InvalidArgument,
		gcerrors.Unimplemented:
		return retry.Permanent(err)
	}
	return err
}

// IsNotFound reports whether err says the remote object does not exist.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound
	}
	return gcerrors.Code(err) == gcerrors.NotFound
}

// isRateLimited reports whether a 403 is Drive's quota signal.
func isRateLimited(gerr *googleapi.Error) bool {
	for _, e := range gerr.Errors {
		switch e.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return false
}
