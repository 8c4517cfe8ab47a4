package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"shop-service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindTimeout:
		return http.StatusServiceUnavailable
	case domain.KindInvariantViolation:
		var de *domain.Error
		if errors.As(err, &de) && de.Stored {
			return http.StatusInternalServerError
		}
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// messageFor hides the details of unclassified failures.
func messageFor(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		if de.Kind == domain.KindInternal {
			return "internal server error"
		}
		return de.Message
	}
	var ise *domain.InsufficientStockError
	if errors.As(err, &ise) {
		return ise.Error()
	}
	return "internal server error"
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	kind := domain.KindOf(err)
	if status >= http.StatusInternalServerError || kind == domain.KindInvariantViolation {
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Kind: kind.String(), Message: messageFor(err)}})
}

// bindError turns a binding failure into a bad request naming the fields.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fieldMessage(fe))
		}
		return domain.NewBadRequest(strings.Join(parts, "; "))
	}
	return &domain.Error{Kind: domain.KindBadRequest, Message: "malformed request body", Err: err}
}

func fieldMessage(fe validator.FieldError) string {
	field := jsonName(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "max":
		return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	case "url":
		return field + " must be a valid URL"
	case "email":
		return "invalid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
