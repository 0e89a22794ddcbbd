package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"chatlink/internal/config"
	"chatlink/internal/domain"
	"chatlink/internal/realtime"
	"chatlink/internal/security"
	"chatlink/internal/service"
)

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			token := parts[1]
			if token != "" {
				return token, nil
			}
		}
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

// Handler returns the /ws endpoint. Authenticates via Bearer token
// (Authorization header or Sec-WebSocket-Protocol), attaches the socket as
// a live delivery channel, then serves inbound events:
//   - message   -> persist & fan out to both parties' channels
//   - mark_read -> flip the read flag (receiver only)
//
// Outbound pushes arrive through the channel's write pump, never directly
// on the socket.
func Handler(
	cfg *config.Config,
	registry *realtime.Registry,
	msgSvc *service.MessageService,
	tokens *security.TokenService,
	users domain.UserRepository,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(cfg.CORSOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			if authErr, ok := err.(wsAuthError); ok {
				http.Error(w, authErr.msg, authErr.status)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		sub, err := tokens.Subject(tokenStr)
		if err != nil || sub == "" {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		user, err := users.GetByUsername(ctx, sub)
		if err != nil || user == nil {
			http.Error(w, "user not found", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		channel := realtime.NewSocketChannel(conn, cfg.WSSendBuffer)
		registry.Attach(user.ID, channel)
		defer func() {
			registry.Detach(user.ID, channel)
			channel.Close()
		}()

		for {
			var payload map[string]any
			if err := conn.ReadJSON(&payload); err != nil {
				break
			}
			msgType, _ := payload["type"].(string)
			switch msgType {

			case "message":
				receiverID, _ := payload["receiver_id"].(string)
				body, _ := payload["body"].(string)
				if receiverID == "" || body == "" {
					sendError(channel, "message requires receiver_id and non-empty body")
					continue
				}
				// SendMessage dispatches to every live channel of both
				// parties, this socket included, so no extra echo here.
				if _, err := msgSvc.SendMessage(ctx, user.ID, receiverID, body); err != nil {
					log.Printf("ws: send message from %s: %v", user.ID, err)
					sendError(channel, "failed to send message")
					continue
				}

			case "mark_read":
				messageID, _ := payload["message_id"].(string)
				if messageID == "" {
					sendError(channel, "mark_read requires message_id")
					continue
				}
				msg, err := msgSvc.MarkRead(ctx, messageID, user.ID)
				if err != nil {
					log.Printf("ws: mark_read %s by %s: %v", messageID, user.ID, err)
					sendError(channel, "failed to mark message as read")
					continue
				}
				sendEvent(channel, map[string]any{
					"type":       "message_read",
					"message_id": msg.ID,
				})

			default:
				log.Printf("ws: unknown event type %q from user %s", msgType, user.ID)
			}
		}
	}
}

func sendEvent(ch realtime.Channel, event map[string]any) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	_ = ch.Send(payload)
}

func sendError(ch realtime.Channel, msg string) {
	sendEvent(ch, map[string]any{
		"type":    "error",
		"message": msg,
	})
}
