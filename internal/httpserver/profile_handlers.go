package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"chatlink/internal/domain"
	"chatlink/internal/service"
)

type profileUpdateRequest struct {
	Username  *string `json:"username"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	AvatarURL *string `json:"avatar_url"`
}

// @Summary      Get a user profile
// @Tags         profiles
// @Produce      json
// @Param        userID path string true "User id"
// @Success      200  {object}  domain.ProfileSummary
// @Security     BearerAuth
// @Router       /users/{userID} [get]
func handleGetProfile(profileSvc *service.ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r) == nil {
			respondError(w, domain.ErrUnauthorized)
			return
		}
		profile, err := profileSvc.Get(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

// @Summary      Update own profile
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        input body profileUpdateRequest true "Profile fields to change"
// @Success      200  {object}  domain.User
// @Security     BearerAuth
// @Router       /users/me [patch]
func handleUpdateProfile(profileSvc *service.ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			respondError(w, domain.ErrUnauthorized)
			return
		}
		var req profileUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		user, err := profileSvc.Update(r.Context(), currentUser.ID, service.ProfileUpdateInput{
			Username:  req.Username,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			AvatarURL: req.AvatarURL,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// @Summary      Search users
// @Tags         profiles
// @Produce      json
// @Param        q     query string true  "Substring to match against usernames"
// @Param        limit query int    false "Maximum results"
// @Success      200  {array}  domain.ProfileSummary
// @Security     BearerAuth
// @Router       /users [get]
func handleSearchUsers(profileSvc *service.ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r) == nil {
			respondError(w, domain.ErrUnauthorized)
			return
		}
		query := r.URL.Query().Get("q")
		if query == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		profiles, err := profileSvc.Search(r.Context(), query, limit)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profiles)
	}
}
