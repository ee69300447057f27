package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clusterintranet/authgate/pkg/errors"
)

// SendSuccess writes a success envelope with the given status.
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse(data))
}

// SendError writes a failure envelope. The HTTP status comes from the
// AppError; anything else maps to 500.
func SendError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus
	}
	c.JSON(status, ErrorResponse(err))
}
