package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/h7labs/imageforge/internal/auth"
	"github.com/h7labs/imageforge/internal/models"
	"github.com/h7labs/imageforge/internal/service"
)

// Generator is the generation coordinator as the HTTP layer sees it.
type Generator interface {
	Submit(ctx context.Context, userID int64, prompt string) (*service.SubmitResult, *service.Rejection)
	Status(ctx context.Context, userID int64) (*service.CreditStatus, *service.Rejection)
}

// Gallery lists and deletes a user's generated images.
type Gallery interface {
	List(ctx context.Context, userID int64) ([]models.Image, error)
	Delete(ctx context.Context, imageID, userID int64) error
}

// Accounts provisions users for verified identities.
type Accounts interface {
	Ensure(ctx context.Context, identity models.Identity) (*models.User, bool, error)
}

// Server exposes the JSON API the dashboard frontend consumes. Every
// response, success or failure, carries the success flag the client branches
// on; HTTP status codes are informational.
type Server struct {
	addr           string
	log            *slog.Logger
	generator      Generator
	gallery        Gallery
	accounts       Accounts
	tokens         *auth.TokenManager
	exchangeSecret string
	router         *chi.Mux
}

func NewServer(addr, exchangeSecret string, log *slog.Logger, tokens *auth.TokenManager, generator Generator, gallery Gallery, accounts Accounts) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:           addr,
		log:            log,
		generator:      generator,
		gallery:        gallery,
		accounts:       accounts,
		tokens:         tokens,
		exchangeSecret: exchangeSecret,
		router:         r,
	}

	r.Post("/auth/session", s.handleSessionExchange)
	r.Group(func(protected chi.Router) {
		protected.Use(auth.Middleware(tokens))
		protected.Post("/api/generate", s.handleGenerate)
		protected.Get("/api/status", s.handleStatus)
		protected.Get("/api/gallery", s.handleGallery)
		protected.Delete("/api/images/{id}", s.handleDeleteImage)
	})
	return s
}

// Handler returns the routed handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// MountImageDir serves locally stored images under urlPrefix. Only used with
// the local storage backend; S3 refs are absolute URLs.
func (s *Server) MountImageDir(urlPrefix, dir string) {
	prefix := strings.TrimRight(urlPrefix, "/")
	s.router.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(dir))))
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // generate holds the connection across the provider call
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("api shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

type sessionRequest struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	PictureURL string `json:"picture_url"`
}

// handleSessionExchange turns a verified identity from the OAuth collaborator
// into a session token, provisioning the account on first login.
func (s *Server) handleSessionExchange(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Exchange-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.exchangeSecret)) != 1 {
		s.writeJSON(w, http.StatusForbidden, map[string]any{
			"success": false,
			"message": "Invalid exchange secret.",
		})
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.failure(w, "Invalid JSON body.")
		return
	}
	if strings.TrimSpace(req.ExternalID) == "" {
		s.failure(w, "external_id is required.")
		return
	}

	user, created, err := s.accounts.Ensure(r.Context(), models.Identity{
		ExternalID: strings.TrimSpace(req.ExternalID),
		Email:      req.Email,
		Name:       req.Name,
		PictureURL: req.PictureURL,
	})
	if err != nil {
		s.log.Error("ensure account", "err", err)
		s.failure(w, "Could not create session. Please try again.")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.log.Error("issue session token", "user_id", user.ID, "err", err)
		s.failure(w, "Could not create session. Please try again.")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"created": created,
		"user": map[string]any{
			"id":          user.ID,
			"name":        user.Name,
			"picture_url": user.PictureURL,
		},
	})
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		s.failure(w, "User not logged in. Please login again.")
		return
	}

	prompt := ""
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.failure(w, "Invalid JSON body.")
			return
		}
		prompt = req.Prompt
	} else {
		prompt = r.FormValue("prompt")
	}

	res, rej := s.generator.Submit(r.Context(), userID, prompt)
	if rej != nil {
		s.rejection(w, rej)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"image_url": res.ImageURL,
		"credits": map[string]any{
			"daily": res.Remaining,
		},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		s.failure(w, "User not logged in. Please login again.")
		return
	}

	status, rej := s.generator.Status(r.Context(), userID)
	if rej != nil {
		s.rejection(w, rej)
		return
	}

	body := map[string]any{
		"success": true,
		"credits": map[string]any{
			"daily": status.Remaining,
			"max":   status.Max,
		},
	}
	if status.NextEligibleAt != nil {
		body["next_refresh_timestamp"] = status.NextEligibleAt.Unix()
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		s.failure(w, "User not logged in. Please login again.")
		return
	}

	images, err := s.gallery.List(r.Context(), userID)
	if err != nil {
		s.log.Error("list gallery", "user_id", userID, "err", err)
		s.failure(w, "Could not load your gallery. Please try again.")
		return
	}

	out := make([]map[string]any, 0, len(images))
	for _, img := range images {
		out = append(out, map[string]any{
			"id":         img.ID,
			"image_url":  img.StorageRef,
			"prompt":     img.Prompt,
			"provider":   img.ProviderTag,
			"created_at": img.CreatedAt.Unix(),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"images":  out,
	})
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		s.failure(w, "User not logged in. Please login again.")
		return
	}

	imageID, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "id")), 10, 64)
	if err != nil || imageID <= 0 {
		s.failure(w, "Invalid image ID provided.")
		return
	}

	if err := s.gallery.Delete(r.Context(), imageID, userID); err != nil {
		if errors.Is(err, service.ErrImageNotFound) {
			s.failure(w, "Image not found or you do not have permission to delete it.")
			return
		}
		s.log.Error("delete image", "user_id", userID, "image_id", imageID, "err", err)
		s.failure(w, "Failed to delete image. Please try again.")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Image deleted successfully.",
	})
}

// rejection maps a coordinator rejection onto the client contract. The body
// always carries success=false plus enough data to restore the UI, including
// the refill instant for the credit countdown.
func (s *Server) rejection(w http.ResponseWriter, rej *service.Rejection) {
	body := map[string]any{
		"success": false,
		"message": rej.Message,
	}
	if rej.Kind == service.RejectOutOfCredits && !rej.NextEligibleAt.IsZero() {
		body["next_refresh_timestamp"] = rej.NextEligibleAt.Unix()
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) failure(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": false,
		"message": message,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
