package api

import (
	"fmt"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "github.com/trustshare/trustshare/docs"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/trustshare/trustshare/internal/api/handlers"
	"github.com/trustshare/trustshare/internal/api/middleware"
	"github.com/trustshare/trustshare/internal/config"
)

func SetupRouter(cfg config.Config, h *handlers.Handlers, log *logrus.Logger) http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(cfg.CorsConfig)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	authMux := http.NewServeMux()
	authMux.HandleFunc("/sign-up", h.RegisterUser)
	authMux.HandleFunc("/login", h.LoginUser)
	authMux.HandleFunc("/google/login", h.HandleGoogleLogin)
	authMux.HandleFunc("/google/callback", h.HandleGoogleCallback)

	mainMux.Handle("/auth/",
		http.StripPrefix("/auth", authMux),
	)

	// ---------- PROTECTED ROUTES ----------
	// The legacy web client calls these paths directly at the root.
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /upload", h.UploadFile)
	protectedMux.HandleFunc("GET /files", h.ListFiles)
	protectedMux.HandleFunc("GET /download/{fileId}", h.DownloadFile)
	protectedMux.HandleFunc("POST /share", h.ShareFile)
	protectedMux.HandleFunc("GET /users", h.ListUsers)
	protectedMux.HandleFunc("POST /share-link", h.CreateShareLink)
	protectedMux.HandleFunc("POST /share-link/revoke", h.RevokeShareLink)
	protectedMux.HandleFunc("GET /file-by-link/{token}", h.ResolveShareLink)
	protectedMux.HandleFunc("GET /notifications", h.Notifications)
	protectedMux.HandleFunc("POST /mark-viewed", h.MarkViewed)
	protectedMux.HandleFunc("POST /logout", h.Logout)

	mainMux.Handle("/",
		middleware.Auth(cfg.JWTSecret)(protectedMux),
	)

	handler := c.Handler(mainMux)
	handler = middleware.Logger(log)(handler)
	return handler
}
