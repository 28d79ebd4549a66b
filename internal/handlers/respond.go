package handlers

import (
	"errors"
	"net/http"

	"arthings/internal/apperr"
	"arthings/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:   http.StatusBadRequest,
	apperr.KindUnauthorized: http.StatusUnauthorized,
	apperr.KindForbidden:    http.StatusForbidden,
	apperr.KindNotFound:     http.StatusNotFound,
	apperr.KindConflict:     http.StatusConflict,
}

// respondError writes the client-safe message of a domain error. Anything
// else is logged with logMsg and the key/value pairs and answered with a
// generic 500.
func respondError(c *gin.Context, err error, logMsg string, keysAndValues ...interface{}) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		if status, ok := kindStatus[appErr.Kind]; ok {
			c.JSON(status, gin.H{"error": appErr.Message})
			return
		}
	}

	logger.Error(logMsg, append(keysAndValues, "error", err)...)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// bindingMessage picks the message for the first failed validation rule,
// keyed by "Field.tag", then "Field", falling back to fallback. Malformed
// bodies get the fallback too.
func bindingMessage(err error, messages map[string]string, fallback string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fallback
	}
	fe := verrs[0]
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := messages[fe.Field()]; ok {
		return msg
	}
	return fallback
}

func respondBindingError(c *gin.Context, err error, messages map[string]string, fallback string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err, messages, fallback)})
}
