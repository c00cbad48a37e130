package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/cafe-connect/trust_ledger/internal/api/middleware"
	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`

	// Resource is the record left behind by a failed operation, such as a failed deposit
	Resource interface{} `json:"resource,omitempty"`
}

// NewValidator registers the enum tags used by request bodies
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	must("emotion", func(fl validator.FieldLevel) bool {
		return entities.EmotionalTag(fl.Field().String()).IsValid()
	})
	must("payment_method", func(fl validator.FieldLevel) bool {
		return entities.PaymentMethod(fl.Field().String()).IsValid()
	})
	must("connection_type", func(fl validator.FieldLevel) bool {
		return entities.ConnectionType(fl.Field().String()).IsValid()
	})
	must("relationship", func(fl validator.FieldLevel) bool {
		return entities.Relationship(fl.Field().String()).IsValid()
	})
	must("permission", func(fl validator.FieldLevel) bool {
		return entities.Permission(fl.Field().String()).IsValid()
	})
	must("principal", func(fl validator.FieldLevel) bool {
		_, err := entities.ParsePrincipal(fl.Field().String())
		return err == nil
	})
	return v
}

// bind decodes the JSON body and runs struct validation. On failure the response
// has already been written.
func bind(c *gin.Context, v *validator.Validate, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondBadRequest(c, "Invalid request body", map[string]string{"error": err.Error()})
		return false
	}
	if err := v.Struct(req); err != nil {
		details := map[string]string{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		respondBadRequest(c, "Request validation failed", details)
		return false
	}
	return true
}

func principal(c *gin.Context) entities.Principal {
	return middleware.Principal(c)
}

func getRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// respondError maps a domain error onto its HTTP status
func respondError(c *gin.Context, log *logger.Logger, err error) {
	respondFailure(c, log, err, nil)
}

func respondFailure(c *gin.Context, log *logger.Logger, err error, resource interface{}) {
	status := apperrors.GetStatusCode(err)
	body := ErrorResponse{
		Code:      apperrors.GetCode(err),
		Message:   err.Error(),
		RequestID: getRequestID(c),
		Resource:  resource,
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		body.Details = appErr.Details
	}
	if status >= http.StatusInternalServerError {
		log.CtxError(c.Request.Context(), "Request failed",
			"request_id", body.RequestID,
			"path", c.FullPath(),
			"error", err,
		)
		if status == http.StatusInternalServerError {
			body.Message = "Internal server error"
		}
	}
	c.JSON(status, body)
}

func respondBadRequest(c *gin.Context, message string, details map[string]string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:      "INVALID_REQUEST",
		Message:   message,
		Details:   details,
		RequestID: getRequestID(c),
	})
}
