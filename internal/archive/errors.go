package archive

import (
	"errors"

	appErrors "github.com/noah-isme/community-archive/pkg/errors"
)

var errDuplicateReporter = errors.New("reporter already flagged material")

// storeMessage extracts the human readable part of a collaborator error.
func storeMessage(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

func uploadFailed(err error) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrUploadFailed.Code, appErrors.ErrUploadFailed.Status,
		appErrors.ErrUploadFailed.Message+": "+storeMessage(err))
}

func persistFailed(err error) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrPersistFailed.Code, appErrors.ErrPersistFailed.Status, appErrors.ErrPersistFailed.Message)
}

func fetchFailed(err error) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, appErrors.ErrFetchFailed.Message)
}

func flagFailed(err error) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrFlagFailed.Code, appErrors.ErrFlagFailed.Status, appErrors.ErrFlagFailed.Message)
}

func errorNotice(err error) Notice {
	appErr := appErrors.FromError(err)
	return Notice{Level: NoticeError, Code: appErr.Code, Message: appErr.Message}
}
