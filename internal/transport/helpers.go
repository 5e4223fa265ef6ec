package transport

import (
	"errors"
	"net/url"

	"github.com/junker098/universe-app/internal/model"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500),
		errors.Is(err, model.ErrWorkflowStopped):
		return 500
	case errors.Is(err, model.ErrWorkflowBusy):
		return 409
	case errors.Is(err, model.ErrAccessDenied),
		errors.Is(err, model.ErrAccessRestricted),
		errors.Is(err, model.ErrAccessLimited),
		errors.Is(err, model.ErrAccessNotDetermined),
		errors.Is(err, model.ErrDeletionNotPermitted),
		errors.Is(err, model.ErrDeletionDeclined):
		return 403
	case errors.Is(err, model.ErrPhotoNotFound):
		return 404
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrConfirmRequired):
		return 400
	default:
		return 500
	}
}

func previewURL(id string) string {
	return "/review/preview?id=" + url.QueryEscape(id)
}
