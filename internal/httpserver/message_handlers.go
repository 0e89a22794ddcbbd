package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"chatlink/internal/domain"
	"chatlink/internal/service"
)

type messageCreateRequest struct {
	ReceiverID string `json:"receiver_id"`
	Body       string `json:"body"`
}

// parseBefore reads the optional exclusive created_at upper bound used for
// cursor pagination.
func parseBefore(r *http.Request) (*time.Time, error) {
	raw := r.URL.Query().Get("before")
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// @Summary      Send a message
// @Description  Send a direct message; the dm thread is created lazily on first contact
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        input body messageCreateRequest true "Message input"
// @Success      201  {object}  service.MessageResponse
// @Security     BearerAuth
// @Router       /messages [post]
func handleSendMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			respondError(w, domain.ErrUnauthorized)
			return
		}
		var req messageCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReceiverID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "receiver_id and body are required"})
			return
		}

		resp, err := msgSvc.SendMessage(r.Context(), currentUser.ID, req.ReceiverID, req.Body)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// @Summary      Message history with a peer
// @Description  List messages exchanged with another user, newest first, paginated by the before cursor
// @Tags         messages
// @Produce      json
// @Param        peerID path  string true  "Peer user id"
// @Param        limit  query int    false "Maximum messages to return"
// @Param        before query string false "Exclusive RFC3339 upper bound on created_at"
// @Success      200  {array}  service.MessageResponse
// @Security     BearerAuth
// @Router       /messages/history/{peerID} [get]
func handlePeerHistory(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			respondError(w, domain.ErrUnauthorized)
			return
		}
		before, err := parseBefore(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "before must be an RFC3339 timestamp"})
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		msgs, err := msgSvc.History(r.Context(), service.HistoryScope{PeerID: chi.URLParam(r, "peerID")}, currentUser.ID, limit, before)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// @Summary      Message history of a conversation
// @Description  List a conversation's messages, newest first, paginated by the before cursor
// @Tags         messages
// @Produce      json
// @Param        conversationID path  string true  "Conversation id"
// @Param        limit          query int    false "Maximum messages to return"
// @Param        before         query string false "Exclusive RFC3339 upper bound on created_at"
// @Success      200  {array}  service.MessageResponse
// @Security     BearerAuth
// @Router       /conversations/{conversationID}/messages [get]
func handleConversationHistory(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			respondError(w, domain.ErrUnauthorized)
			return
		}
		before, err := parseBefore(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "before must be an RFC3339 timestamp"})
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		msgs, err := msgSvc.History(r.Context(), service.HistoryScope{ConversationID: chi.URLParam(r, "conversationID")}, currentUser.ID, limit, before)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// @Summary      Mark a message read
// @Description  Flip the read flag; only the receiver may do this
// @Tags         messages
// @Produce      json
// @Param        messageID path string true "Message id"
// @Success      200  {object}  service.MessageResponse
// @Security     BearerAuth
// @Router       /messages/{messageID}/read [post]
func handleMarkRead(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			respondError(w, domain.ErrUnauthorized)
			return
		}
		msg, err := msgSvc.MarkRead(r.Context(), chi.URLParam(r, "messageID"), currentUser.ID)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}
