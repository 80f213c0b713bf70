package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/looplj/caseflow/internal/log"
	"github.com/looplj/caseflow/internal/objects"
	"github.com/looplj/caseflow/internal/server/biz"
)

var (
	errNotFound = errors.New("not found")
	errInternal = errors.New("Internal server error")
)

// JSONError returns a JSON error response and adds the error to gin context for access logging.
func JSONError(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.JSON(status, objects.ErrorResponse{
		Error: objects.Error{
			Type:    http.StatusText(status),
			Message: err.Error(),
		},
	})
}

// renderError maps biz errors to responses. Missing, invisible and
// forbidden rows share one 404 body so callers cannot probe other tenants.
func renderError(c *gin.Context, err error) {
	if rejected, ok := biz.IsTransitionRejected(err); ok {
		_ = c.Error(err)
		c.JSON(http.StatusUnprocessableEntity, objects.ErrorResponse{
			Error: objects.Error{
				Type:    http.StatusText(http.StatusUnprocessableEntity),
				Message: "transition rejected",
				Reason:  rejected.Reason,
			},
		})

		return
	}

	switch {
	case errors.Is(err, biz.ErrNotFound), errors.Is(err, biz.ErrForbidden):
		renderDenial(c, err)
	case errors.Is(err, biz.ErrInvalidInput):
		JSONError(c, http.StatusBadRequest, err)
	case errors.Is(err, biz.ErrSubdomainTaken),
		errors.Is(err, biz.ErrMemberExists),
		errors.Is(err, biz.ErrLastOwner),
		errors.Is(err, biz.ErrStatusConflict):
		JSONError(c, http.StatusConflict, err)
	default:
		log.Error(c.Request.Context(), "request failed", log.Cause(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, objects.ErrorResponse{
			Error: objects.Error{
				Type:    http.StatusText(http.StatusInternalServerError),
				Message: errInternal.Error(),
			},
		})
	}
}

func renderDenial(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusNotFound, objects.ErrorResponse{
		Error: objects.Error{
			Type:    http.StatusText(http.StatusNotFound),
			Message: errNotFound.Error(),
		},
	})
}
