package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "chatlink/docs"
	"chatlink/internal/config"
	"chatlink/internal/domain"
	"chatlink/internal/realtime"
	"chatlink/internal/security"
	"chatlink/internal/service"
	"chatlink/internal/ws"
)

// Repositories bundles the store implementations the router depends on.
// The caller picks the backend (sqlite or postgres) and hands over the
// matching set.
type Repositories struct {
	Users         domain.UserRepository
	Connections   domain.ConnectionRepository
	Conversations domain.ConversationRepository
	Participants  domain.ParticipantRepository
	Messages      domain.MessageRepository
}

// NewRouter assembles the full HTTP surface: REST API, websocket endpoint
// and swagger UI.
func NewRouter(
	cfg *config.Config,
	repos Repositories,
	registry *realtime.Registry,
	dispatcher *realtime.Dispatcher,
	tokens *security.TokenService,
	hasher *security.PasswordHasher,
	encryptor *security.Encryptor,
) http.Handler {
	authSvc := service.NewAuthService(repos.Users, tokens, hasher)
	profileSvc := service.NewProfileService(repos.Users)
	connSvc := service.NewConnectionService(repos.Connections, repos.Users)
	convSvc := service.NewConversationService(repos.Conversations)
	msgSvc := service.NewMessageService(
		convSvc,
		repos.Conversations,
		repos.Participants,
		repos.Messages,
		repos.Users,
		encryptor,
		dispatcher,
		cfg.HistoryPageSize,
	)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"name":   cfg.AppName,
			"status": "running",
		})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", handleRegister(authSvc))
		api.Post("/auth/login", handleLogin(authSvc))

		api.Group(func(protected chi.Router) {
			protected.Use(AuthMiddleware(tokens, repos.Users))

			protected.Get("/auth/me", handleMe())

			protected.Get("/users", handleSearchUsers(profileSvc))
			protected.Patch("/users/me", handleUpdateProfile(profileSvc))
			protected.Get("/users/{userID}", handleGetProfile(profileSvc))

			protected.Post("/connections", handleRequestConnection(connSvc))
			protected.Get("/connections", handleListConnections(connSvc))
			protected.Post("/connections/respond", handleRespondConnection(connSvc))

			protected.Get("/conversations", handleListInbox(convSvc))
			protected.Post("/conversations/dm/{otherUserID}", handleGetOrCreateDM(convSvc))
			protected.Get("/conversations/{conversationID}/messages", handleConversationHistory(msgSvc))

			protected.Post("/messages", handleSendMessage(msgSvc))
			protected.Get("/messages/history/{peerID}", handlePeerHistory(msgSvc))
			protected.Post("/messages/{messageID}/read", handleMarkRead(msgSvc))
		})
	})

	r.Get("/ws", ws.Handler(cfg, registry, msgSvc, tokens, repos.Users))

	return r
}
