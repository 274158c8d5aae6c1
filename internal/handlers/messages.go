package handlers

import (
	"net/http"
	"strings"

	"github.com/parley-chat/parley/internal/apperr"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/notify"
	"github.com/parley-chat/parley/internal/store"
	"github.com/parley-chat/parley/internal/upload"
	"github.com/parley-chat/parley/internal/validate"
)

type MessageHandler struct {
	Store        store.Store
	Notifier     notify.Notifier
	Uploader     upload.Uploader
	Conversation *ConversationHandler

	PageLimit int
	PageMax   int
}

type sendMessageRequest struct {
	Content string `json:"content"`
	Image   string `json:"image"`
}

// Send posts a message into a conversation the caller participates in.
// Individual conversations re-check the mutual block; group conversations
// deliberately do not, so two members who blocked each other one-to-one can
// still talk in a shared group.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	conv, callerID, err := h.Conversation.participantConversation(r)
	if err != nil {
		fail(w, err)
		return
	}

	content, imageURL, err := h.readBody(r)
	if err != nil {
		fail(w, err)
		return
	}
	if content == "" && imageURL == "" {
		fail(w, apperr.Validationf("a message requires content or image"))
		return
	}

	if conv.Type == models.ConversationIndividual {
		for _, other := range otherParticipants(conv, callerID) {
			blocked, err := h.Store.IsBlockedEither(callerID, other)
			if err != nil {
				fail(w, err)
				return
			}
			if blocked {
				fail(w, apperr.Blocked("conversation is blocked between these users"))
				return
			}
		}
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       callerID,
		Content:        content,
		Image:          imageURL,
		Status:         models.MessageSent,
	}
	if err := h.Store.SendMessage(msg); err != nil {
		fail(w, err)
		return
	}

	if others := otherParticipants(conv, callerID); len(others) > 0 {
		ev := notify.NewEvent(notify.EventMessageNew, conv.ID)
		ev.MessageID = msg.ID
		ev.SenderID = callerID
		ev.Payload = msg
		h.Notifier.Notify(others, ev)
	}

	respond(w, http.StatusCreated, "message sent", msg)
}

// List pages through a conversation's history newest-first. The cursor is
// the id of the last message of the previous page, exclusive.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	conv, _, err := h.Conversation.participantConversation(r)
	if err != nil {
		fail(w, err)
		return
	}

	cursor, err := validate.Cursor(r.URL.Query().Get("cursor"))
	if err != nil {
		fail(w, err)
		return
	}
	limit, err := validate.Limit(r.URL.Query().Get("limit"), h.PageLimit, h.PageMax)
	if err != nil {
		fail(w, err)
		return
	}

	msgs, hasMore, err := h.Store.ListMessages(conv.ID, cursor, limit)
	if err != nil {
		fail(w, err)
		return
	}

	var nextCursor uint
	if hasMore && len(msgs) > 0 {
		nextCursor = msgs[len(msgs)-1].ID
	}
	respond(w, http.StatusOK, "", map[string]interface{}{
		"messages":    msgs,
		"has_more":    hasMore,
		"next_cursor": nextCursor,
	})
}

// readBody accepts either JSON (content and/or a hosted image URL) or a
// multipart form whose image part is pushed through the upload port first.
func (h *MessageHandler) readBody(r *http.Request) (content, imageURL string, err error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			return "", "", apperr.Validationf("invalid multipart body")
		}
		content, err = validate.Content(r.FormValue("content"))
		if err != nil {
			return "", "", err
		}
		file, header, ferr := r.FormFile("image")
		if ferr == nil {
			defer file.Close()
			imageURL, err = h.Uploader.Upload(r.Context(), file, header.Filename)
			if err != nil {
				return "", "", err
			}
		} else if ferr != http.ErrMissingFile {
			return "", "", apperr.Validationf("invalid image attachment")
		}
		return content, imageURL, nil
	}

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", "", err
	}
	content, err = validate.Content(req.Content)
	if err != nil {
		return "", "", err
	}
	if err := validate.ImageURL(req.Image); err != nil {
		return "", "", err
	}
	return content, req.Image, nil
}
