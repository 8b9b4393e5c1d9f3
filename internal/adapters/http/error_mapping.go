package httpadapter

import (
	"net/http"

	"github.com/hirewatch/screening-engine/internal/core/domain"
)

// statusClientClosedRequest mirrors the nginx convention for requests the
// caller abandoned before a response was produced.
const statusClientClosedRequest = 499

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrNoChunkableText):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrCancelled):
		return statusClientClosedRequest
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrChannelTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
