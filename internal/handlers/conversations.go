package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/parley-chat/parley/internal/apperr"
	"github.com/parley-chat/parley/internal/middleware"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/notify"
	"github.com/parley-chat/parley/internal/store"
	"github.com/parley-chat/parley/internal/validate"
)

type ConversationHandler struct {
	Store    store.Store
	Notifier notify.Notifier
}

type createIndividualRequest struct {
	OtherUserID uint `json:"other_user_id"`
}

type createGroupRequest struct {
	Name      string `json:"name"`
	Image     string `json:"image"`
	MemberIDs []uint `json:"member_ids"`
}

type addMemberRequest struct {
	UserID uint `json:"user_id"`
}

type updateGroupRequest struct {
	Name  *string `json:"name"`
	Image *string `json:"image"`
}

// CreateIndividual starts (or returns) the 1:1 conversation with another
// user. Re-invocation with the same pair answers 200 with the existing row
// instead of creating a duplicate.
func (h *ConversationHandler) CreateIndividual(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.UserID(r)

	var req createIndividualRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}
	if req.OtherUserID == 0 {
		fail(w, apperr.Validationf("other_user_id is required"))
		return
	}
	if req.OtherUserID == callerID {
		fail(w, apperr.Validationf("cannot start a conversation with yourself"))
		return
	}
	if _, err := h.Store.GetUserByID(req.OtherUserID); err != nil {
		fail(w, err)
		return
	}

	blocked, err := h.Store.IsBlockedEither(callerID, req.OtherUserID)
	if err != nil {
		fail(w, err)
		return
	}
	if blocked {
		fail(w, apperr.Blocked("conversation is blocked between these users"))
		return
	}

	conv, created, err := h.Store.GetOrCreateIndividual(callerID, req.OtherUserID)
	if err != nil {
		fail(w, err)
		return
	}
	status := http.StatusOK
	message := "conversation already exists"
	if created {
		status = http.StatusCreated
		message = "conversation created"
	}
	respond(w, status, message, conv)
}

func (h *ConversationHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.UserID(r)

	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}
	name, err := validate.GroupName(req.Name)
	if err != nil {
		fail(w, err)
		return
	}
	if err := validate.ImageURL(req.Image); err != nil {
		fail(w, err)
		return
	}
	if err := validate.GroupMembers(callerID, req.MemberIDs); err != nil {
		fail(w, err)
		return
	}

	conv, err := h.Store.CreateGroup(callerID, name, req.Image, req.MemberIDs)
	if err != nil {
		fail(w, err)
		return
	}
	respond(w, http.StatusCreated, "group created", conv)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.UserID(r)

	limit, err := validate.Limit(r.URL.Query().Get("limit"), 20, 100)
	if err != nil {
		fail(w, err)
		return
	}
	offset, err := validate.Offset(r.URL.Query().Get("offset"))
	if err != nil {
		fail(w, err)
		return
	}

	convs, err := h.Store.ListConversations(callerID, limit, offset)
	if err != nil {
		fail(w, err)
		return
	}
	respond(w, http.StatusOK, "", map[string]interface{}{"conversations": convs})
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conv, _, err := h.participantConversation(r)
	if err != nil {
		fail(w, err)
		return
	}
	respond(w, http.StatusOK, "", conv)
}

func (h *ConversationHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	conv, _, err := h.adminConversation(r)
	if err != nil {
		fail(w, err)
		return
	}

	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}
	if req.UserID == 0 {
		fail(w, apperr.Validationf("user_id is required"))
		return
	}

	if err := h.Store.AddMember(conv.ID, req.UserID); err != nil {
		fail(w, err)
		return
	}
	updated, err := h.Store.GetConversation(conv.ID)
	if err != nil {
		fail(w, err)
		return
	}
	respond(w, http.StatusOK, "member added", updated)
}

func (h *ConversationHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	conv, _, err := h.adminConversation(r)
	if err != nil {
		fail(w, err)
		return
	}

	targetID, err := validate.ID(mux.Vars(r)["userId"])
	if err != nil {
		fail(w, err)
		return
	}

	if err := h.Store.RemoveMember(conv.ID, targetID); err != nil {
		fail(w, err)
		return
	}
	updated, err := h.Store.GetConversation(conv.ID)
	if err != nil {
		fail(w, err)
		return
	}
	respond(w, http.StatusOK, "member removed", updated)
}

func (h *ConversationHandler) Leave(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.UserID(r)
	convID, err := validate.ID(mux.Vars(r)["id"])
	if err != nil {
		fail(w, err)
		return
	}

	conv, err := h.Store.LeaveGroup(convID, callerID)
	if err != nil {
		fail(w, err)
		return
	}
	respond(w, http.StatusOK, "left group", conv)
}

func (h *ConversationHandler) Update(w http.ResponseWriter, r *http.Request) {
	conv, _, err := h.adminConversation(r)
	if err != nil {
		fail(w, err)
		return
	}

	var req updateGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}
	if req.Name == nil && req.Image == nil {
		fail(w, apperr.Validationf("nothing to update"))
		return
	}
	if req.Name != nil {
		name, err := validate.GroupName(*req.Name)
		if err != nil {
			fail(w, err)
			return
		}
		req.Name = &name
	}
	if req.Image != nil {
		if err := validate.ImageURL(*req.Image); err != nil {
			fail(w, err)
			return
		}
	}

	updated, err := h.Store.UpdateGroup(conv.ID, req.Name, req.Image)
	if err != nil {
		fail(w, err)
		return
	}
	respond(w, http.StatusOK, "group updated", updated)
}

// MarkSeen resets the caller's unread counter and acknowledges every
// message the caller has not seen yet. The notification to the other
// participants is best effort.
func (h *ConversationHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	conv, callerID, err := h.participantConversation(r)
	if err != nil {
		fail(w, err)
		return
	}

	newlySeen, err := h.Store.MarkSeen(conv.ID, callerID)
	if err != nil {
		fail(w, err)
		return
	}

	if others := otherParticipants(conv, callerID); len(others) > 0 {
		ev := notify.NewEvent(notify.EventConversationSeen, conv.ID)
		ev.SenderID = callerID
		h.Notifier.Notify(others, ev)
	}

	respond(w, http.StatusOK, "conversation marked seen", map[string]interface{}{
		"newly_seen": newlySeen,
	})
}

// participantConversation loads the conversation from the path and verifies
// the caller is a participant.
func (h *ConversationHandler) participantConversation(r *http.Request) (*models.Conversation, uint, error) {
	callerID := middleware.UserID(r)
	convID, err := validate.ID(mux.Vars(r)["id"])
	if err != nil {
		return nil, 0, err
	}
	conv, err := h.Store.GetConversation(convID)
	if err != nil {
		return nil, 0, err
	}
	if !isParticipant(conv, callerID) {
		return nil, 0, apperr.Forbiddenf("you are not a participant of this conversation")
	}
	return conv, callerID, nil
}

// adminConversation additionally requires the caller to be the group admin.
func (h *ConversationHandler) adminConversation(r *http.Request) (*models.Conversation, uint, error) {
	conv, callerID, err := h.participantConversation(r)
	if err != nil {
		return nil, 0, err
	}
	if conv.Type != models.ConversationGroup {
		return nil, 0, apperr.Validationf("conversation %d is not a group", conv.ID)
	}
	if conv.AdminID == nil || *conv.AdminID != callerID {
		return nil, 0, apperr.Forbiddenf("only the group admin may do this")
	}
	return conv, callerID, nil
}

func isParticipant(conv *models.Conversation, userID uint) bool {
	for _, p := range conv.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func otherParticipants(conv *models.Conversation, userID uint) []uint {
	others := make([]uint, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		if p.UserID != userID {
			others = append(others, p.UserID)
		}
	}
	return others
}
