package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sellgrid/marketplace-backend/api/middleware"
	"github.com/sellgrid/marketplace-backend/api/responses"
	"github.com/sellgrid/marketplace-backend/api/validators"
	chatsvc "github.com/sellgrid/marketplace-backend/internal/chat"
	pkgerrors "github.com/sellgrid/marketplace-backend/pkg/errors"
	"github.com/sellgrid/marketplace-backend/pkg/logger"
)

type sendMessageRequest struct {
	ReceiverID uuid.UUID  `json:"receiver_id" validate:"required"`
	Content    string     `json:"content" validate:"required"`
	ProductID  *uuid.UUID `json:"product_id,omitempty"`
	OrderID    *uuid.UUID `json:"order_id,omitempty"`
}

// SendMessage stores a direct message and pushes it onto the realtime feed.
func SendMessage(svc chatsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		var body sendMessageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message, err := svc.Send(r.Context(), middleware.ProfileIDFromContext(r.Context()), chatsvc.SendMessageInput{
			ReceiverID: body.ReceiverID,
			Content:    body.Content,
			ProductID:  body.ProductID,
			OrderID:    body.OrderID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

// ChatHistory pages the conversation with another profile oldest-first.
func ChatHistory(svc chatsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		otherID, err := validators.ParseURLUUID(r, "otherId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, maxPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.History(r.Context(), middleware.ProfileIDFromContext(r.Context()), chatsvc.HistoryInput{
			OtherID: otherID,
			Limit:   limit,
			Cursor:  strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// MarkMessageRead marks one received message as read.
func MarkMessageRead(svc chatsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		messageID, err := validators.ParseURLUUID(r, "messageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), middleware.ProfileIDFromContext(r.Context()), messageID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

// ChatStream upgrades to a WebSocket scoped to one conversation.
func ChatStream(streamer *chatsvc.Streamer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if streamer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat stream unavailable"))
			return
		}

		otherID, err := validators.ParseURLUUID(r, "otherId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.ProfileIDFromContext(r.Context())
		if userID == otherID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "conversation requires two participants"))
			return
		}

		streamer.Stream(w, r, userID, otherID)
	}
}
