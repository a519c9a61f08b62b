// doctalk/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupRouter configures all routes and middleware for the application.
// Every API endpoint dispatches on an "action" parameter rather than on
// the path, so each area of the API is a single route.
func SetupRouter(app App) *chi.Mux {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(NewStructuredLogger(app.Logger()))
	mux.Use(middleware.Recoverer)
	mux.Use(SecurityHeaders)

	mux.HandleFunc("/api/auth", MakeHandler(app, HandleAuth))
	mux.HandleFunc("/api/comments", MakeHandler(app, HandleComments))
	mux.HandleFunc("/api/sections", MakeHandler(app, HandleSections))
	mux.HandleFunc("/api/admin", MakeHandler(app, HandleAdmin))

	// Locally stored avatars. When S3 storage is configured the avatar
	// paths returned by the API are absolute URLs and this route is idle.
	avatarServer := http.FileServer(http.Dir(app.AvatarDir()))
	mux.Handle("/avatars/*", http.StripPrefix("/avatars/", avatarServer))

	return mux
}
