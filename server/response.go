package server

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/hyodoblog/mojiokoshi-line-bot/errors"
)

// Fail aborts the request with err in the error envelope. Errors that are
// not an *apperrors.AppError become INTERNAL_ERROR without their text.
func Fail(c *gin.Context, err error) {
	e, ok := apperrors.AsAppError(err)
	if !ok {
		e = apperrors.Internal(err)
	}
	c.AbortWithStatusJSON(e.HTTPStatus, e.ToResponse())
}
