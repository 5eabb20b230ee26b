package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bharatvidya/lms-api/internal/models"
	"github.com/bharatvidya/lms-api/internal/service"
	appErrors "github.com/bharatvidya/lms-api/pkg/errors"
	"github.com/bharatvidya/lms-api/pkg/mailer"
	"github.com/bharatvidya/lms-api/pkg/response"
)

// NotificationHandler exposes the thin email forwarding endpoint backed by
// the notification gateway.
type NotificationHandler struct {
	notifier *service.Notifier
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifier *service.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// SendEmail godoc
// @Summary Forward one email through the mail provider
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body mailer.Message true "Email payload"
// @Success 200 {object} response.Envelope
// @Router /notifications/email [post]
func (h *NotificationHandler) SendEmail(c *gin.Context) {
	var msg mailer.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	msgType := models.MessageTypeTransactional
	if msg.Type != "" {
		msgType = models.MessageType(msg.Type)
	}

	if err := h.notifier.Submit(c.Request.Context(), msg, msgType); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"delivered": true}, nil)
}
