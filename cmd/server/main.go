// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/lingopeer/lingopeer/internal/auth"
	"github.com/lingopeer/lingopeer/internal/cache"
	"github.com/lingopeer/lingopeer/internal/chat"
	"github.com/lingopeer/lingopeer/internal/database"
	"github.com/lingopeer/lingopeer/internal/friends"
	"github.com/lingopeer/lingopeer/internal/handlers"
	"github.com/lingopeer/lingopeer/internal/middleware"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	hub := handlers.NewNotifyHub(logger)
	publishers := []friends.EventPublisher{hub}
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, friend events will not be queued: %v", err)
	} else {
		publishers = append(publishers, cache.NewEventQueue())
	}

	store := database.NewFriendStore()
	svc := friends.NewService(store, logger, publishers...)
	rec := friends.NewRecommender(store, database.UserDirectory{})

	chatProvider, err := chat.NewProviderFromEnv()
	if err != nil {
		log.Fatalf("chat provider config: %v", err)
	}

	mux := http.NewServeMux()

	// auth + profile endpoints
	mux.HandleFunc("/auth/signup", handlers.SignupHandler)
	mux.HandleFunc("/auth/login", handlers.LoginHandler)
	mux.HandleFunc("/auth/logout", handlers.LogoutHandler)
	mux.HandleFunc("/auth/me", handlers.MeHandler)
	mux.HandleFunc("/auth/onboarding", handlers.OnboardingHandler)

	// friend subsystem
	mux.HandleFunc("/users/recommended", handlers.RecommendedUsersHandler(rec))
	mux.HandleFunc("/users/friends", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			handlers.UnfriendHandler(svc)(w, r)
			return
		}
		handlers.ListFriendsHandler(rec)(w, r)
	})
	mux.HandleFunc("/users/friend-request", handlers.SendFriendRequestHandler(svc))
	mux.HandleFunc("/users/friend-request/accept", handlers.AcceptFriendRequestHandler(svc))
	mux.HandleFunc("/users/friend-request/decline", handlers.DeclineFriendRequestHandler(svc))
	mux.HandleFunc("/users/friend-request/cancel", handlers.CancelFriendRequestHandler(svc))
	mux.HandleFunc("/users/friend-requests", handlers.IncomingRequestsHandler(rec))
	mux.HandleFunc("/users/outgoing-friend-requests", handlers.OutgoingRequestsHandler(rec))

	// chat provider token
	mux.HandleFunc("/chat/token", handlers.ChatTokenHandler(chatProvider))

	// notifications
	mux.HandleFunc("/notifications", handlers.NotificationsHandler)

	// The ws route sits outside the logging wrapper: the status recorder
	// does not implement http.Hijacker, which the upgrade needs.
	root := http.NewServeMux()
	root.HandleFunc("/notifications/ws", handlers.NotificationsWSHandler(logger, hub))
	root.Handle("/", middleware.LogMiddleware(logger)(mux))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, root); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
