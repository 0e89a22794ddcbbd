package httpserver

import (
	"encoding/json"
	"net/http"

	"chatlink/internal/domain"
	"chatlink/internal/service"
)

type connectionCreateRequest struct {
	AddresseeID string `json:"addressee_id"`
}

type connectionRespondRequest struct {
	ConnectionID string `json:"connection_id"`
	Action       string `json:"action"`
}

// @Summary      Request a connection
// @Description  Create a pending connection to another user; repeated or crossing requests converge on the same row
// @Tags         connections
// @Accept       json
// @Produce      json
// @Param        input body connectionCreateRequest true "Connection input"
// @Success      200  {object}  service.ConnectionResponse
// @Security     BearerAuth
// @Router       /connections [post]
func handleRequestConnection(connSvc *service.ConnectionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			respondError(w, domain.ErrUnauthorized)
			return
		}
		var req connectionCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AddresseeID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "addressee_id is required"})
			return
		}

		conn, err := connSvc.RequestConnection(r.Context(), currentUser.ID, req.AddresseeID)
		if err != nil {
			respondError(w, err)
			return
		}
		resp, err := connSvc.ToResponse(r.Context(), currentUser.ID, conn)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// @Summary      List connections
// @Description  List the caller's connections, optionally filtered by status
// @Tags         connections
// @Produce      json
// @Param        status query string false "Status filter (pending|accepted|rejected|blocked)"
// @Success      200  {array}  service.ConnectionResponse
// @Security     BearerAuth
// @Router       /connections [get]
func handleListConnections(connSvc *service.ConnectionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			respondError(w, domain.ErrUnauthorized)
			return
		}
		conns, err := connSvc.ListConnections(r.Context(), currentUser.ID, r.URL.Query().Get("status"))
		if err != nil {
			respondError(w, err)
			return
		}
		resp, err := connSvc.ToResponses(r.Context(), currentUser.ID, conns)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// @Summary      Respond to a connection
// @Description  Accept, reject or block a pending connection; only the addressee may respond
// @Tags         connections
// @Accept       json
// @Produce      json
// @Param        input body connectionRespondRequest true "Respond input"
// @Success      200  {object}  service.ConnectionResponse
// @Security     BearerAuth
// @Router       /connections/respond [post]
func handleRespondConnection(connSvc *service.ConnectionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			respondError(w, domain.ErrUnauthorized)
			return
		}
		var req connectionRespondRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConnectionID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "connection_id and action are required"})
			return
		}

		conn, err := connSvc.RespondConnection(r.Context(), req.ConnectionID, currentUser.ID, req.Action)
		if err != nil {
			respondError(w, err)
			return
		}
		resp, err := connSvc.ToResponse(r.Context(), currentUser.ID, conn)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
