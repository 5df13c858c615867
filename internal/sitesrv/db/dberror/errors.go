package dberror

import (
	"net/http"

	"github.com/Luna-Sites/lunasites-platform/internal/common/apperrors"
)

var (
	ErrDatabase        apperrors.Error = apperrors.New("db error").SetStatusCode(http.StatusInternalServerError)
	ErrNotFound        apperrors.Error = ErrDatabase.New("not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidInput    apperrors.Error = ErrDatabase.New("invalid input").SetStatusCode(http.StatusBadRequest)
	ErrMissingTenantID apperrors.Error = ErrInvalidInput.New("missing tenant ID").SetStatusCode(http.StatusBadRequest)

	// Master routing registry
	ErrDomainTaken apperrors.Error = ErrDatabase.New("domain already taken").SetStatusCode(http.StatusConflict)

	// Database lifecycle
	ErrSourceBusy  apperrors.Error = ErrDatabase.New("source database busy").SetStatusCode(http.StatusConflict)
	ErrCloneFailed apperrors.Error = ErrDatabase.New("database clone failed").SetStatusCode(http.StatusInternalServerError)
)
