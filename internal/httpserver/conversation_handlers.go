package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"chatlink/internal/domain"
	"chatlink/internal/service"
)

// @Summary      Open a direct conversation
// @Description  Get or lazily create the single dm thread with another user
// @Tags         conversations
// @Produce      json
// @Param        otherUserID path string true "Peer user id"
// @Success      200  {object}  domain.Conversation
// @Security     BearerAuth
// @Router       /conversations/dm/{otherUserID} [post]
func handleGetOrCreateDM(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			respondError(w, domain.ErrUnauthorized)
			return
		}
		otherUserID := chi.URLParam(r, "otherUserID")
		if otherUserID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user id"})
			return
		}

		conv, err := convSvc.GetOrCreateDM(r.Context(), currentUser.ID, otherUserID)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

// @Summary      List inbox
// @Description  List the caller's conversations, most recently active first
// @Tags         conversations
// @Produce      json
// @Param        limit query int false "Maximum conversations to return"
// @Success      200  {array}  domain.Conversation
// @Security     BearerAuth
// @Router       /conversations [get]
func handleListInbox(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			respondError(w, domain.ErrUnauthorized)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		convs, err := convSvc.ListInbox(r.Context(), currentUser.ID, limit)
		if err != nil {
			respondError(w, err)
			return
		}
		if convs == nil {
			convs = []*domain.Conversation{}
		}
		writeJSON(w, http.StatusOK, convs)
	}
}
