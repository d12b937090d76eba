package stubapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/blognest/blognest-go/internal/crypto"
	"github.com/blognest/blognest-go/internal/model"
)

const maxBodyBytes = 1 << 20 // 1MB

type Options struct {
	Secret   string
	TokenTTL time.Duration
	// RateLimitRPS and RateLimitBurst apply per IP to /login and /users/.
	// Zero RPS disables the limit.
	RateLimitRPS   float64
	RateLimitBurst int
	// KeyParams tunes password hashing. Zero value means crypto.DefaultKeyParams.
	KeyParams crypto.KeyParams
	Logger    *slog.Logger
	Now       func() time.Time
}

// Server serves the blog API from a Store.
type Server struct {
	store  *Store
	secret string
	ttl    time.Duration
	logger *slog.Logger
	router chi.Router
}

func New(opts Options) *Server {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 30 * time.Minute
	}
	if opts.KeyParams == (crypto.KeyParams{}) {
		opts.KeyParams = crypto.DefaultKeyParams()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		store:  NewStore(opts.KeyParams, opts.Now),
		secret: opts.Secret,
		ttl:    opts.TokenTTL,
		logger: opts.Logger,
	}
	s.router = s.routes(opts)
	return s
}

// Store exposes the backing data, mainly for tests.
func (s *Server) Store() *Store {
	return s.store
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(opts Options) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(s.logger))
	r.Use(chimw.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "BlogNest API is running!"})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if opts.RateLimitRPS > 0 {
			r.Use(RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
		}
		r.Post("/login", s.handleLogin)
		r.Post("/users", s.handleCreateUser)
		r.Post("/users/", s.handleCreateUser)
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(s.secret, s.store))

		r.Get("/blogs", s.handleListBlogs)
		r.Post("/blog", s.handleCreateBlog)
		r.Get("/blog/{id}", s.handleGetBlog)
		r.Put("/blog/{id}", s.handleUpdateBlog)
		r.Delete("/blog/{id}", s.handleDeleteBlog)
		r.Post("/blog/{id}/like", s.handleInteract(model.Like))
		r.Post("/blog/{id}/dislike", s.handleInteract(model.Dislike))

		r.Get("/categories", s.handleListCategories)
		r.Get("/categories/", s.handleListCategories)
		r.Get("/categories/{id}/blogs", s.handleCategoryBlogs)

		r.Get("/users/me/blogs", s.handleMyBlogs)
		r.Get("/users/me/liked-blogs", s.handleLikedBlogs)
	})

	return r
}

// handleLogin handles POST /login. The body is a form with the email in the
// username field.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeValidation(w, "invalid form body")
		return
	}

	email := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if missing := missingFields(map[string]string{"username": email, "password": password}); len(missing) > 0 {
		writeValidation(w, missing...)
		return
	}

	user, err := s.store.Authenticate(email, password)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			writeDetail(w, http.StatusNotFound, "User not found")
		case errors.Is(err, ErrIncorrectPassword):
			writeDetail(w, http.StatusForbidden, "Incorrect password")
		default:
			s.internalError(w, r, err)
		}
		return
	}

	token, err := crypto.SignToken(user.Email, s.secret, s.ttl)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// handleCreateUser handles POST /users/.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var p model.Profile
	if !decodeBody(w, r, &p) {
		return
	}
	if missing := missingFields(map[string]string{"username": p.Username, "email": p.Email, "password": p.Password}); len(missing) > 0 {
		writeValidation(w, missing...)
		return
	}

	user, err := s.store.CreateUser(p)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			writeDetail(w, http.StatusBadRequest, "Email already registered")
			return
		}
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleListBlogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Blogs(r.URL.Query().Get("search")))
}

func (s *Server) handleGetBlog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	b, err := s.store.Blog(id)
	if err != nil {
		s.blogError(w, r, id, err, "")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleCreateBlog(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())

	var in model.BlogInput
	if !decodeBody(w, r, &in) || !validBlogInput(w, in) {
		return
	}

	b, err := s.store.CreateBlog(user.ID, in)
	if err != nil {
		s.blogError(w, r, 0, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleUpdateBlog(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in model.BlogInput
	if !decodeBody(w, r, &in) || !validBlogInput(w, in) {
		return
	}

	b, err := s.store.UpdateBlog(user.ID, id, in)
	if err != nil {
		s.blogError(w, r, id, err, "update")
		return
	}
	writeJSON(w, http.StatusAccepted, b)
}

func (s *Server) handleDeleteBlog(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteBlog(user.ID, id); err != nil {
		s.blogError(w, r, id, err, "delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInteract(kind model.Interaction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := CurrentUser(r.Context())
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		msg, err := s.store.Interact(user.ID, id, kind)
		if err != nil {
			s.blogError(w, r, id, err, "")
			return
		}
		writeDetail(w, http.StatusOK, msg)
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Categories())
}

func (s *Server) handleCategoryBlogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.store.CategoryBlogs(id, r.URL.Query().Get("search")))
}

func (s *Server) handleMyBlogs(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())
	writeJSON(w, http.StatusOK, s.store.BlogsBy(user.ID))
}

func (s *Server) handleLikedBlogs(w http.ResponseWriter, r *http.Request) {
	user, _ := CurrentUser(r.Context())
	writeJSON(w, http.StatusOK, s.store.LikedBy(user.ID))
}

func (s *Server) blogError(w http.ResponseWriter, r *http.Request, id int64, err error, action string) {
	switch {
	case errors.Is(err, ErrBlogNotFound):
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Blog with id %d not found", id))
	case errors.Is(err, ErrForbidden):
		writeDetail(w, http.StatusForbidden, "Not authorized to "+action+" this blog")
	case errors.Is(err, ErrCategoryNotFound):
		writeDetail(w, http.StatusNotFound, "Category not found")
	default:
		s.internalError(w, r, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", RequestIDFromContext(r.Context()))
	writeDetail(w, http.StatusInternalServerError, "Internal server error")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeValidation(w, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeValidation(w, "invalid JSON body")
		return false
	}
	return true
}

func validBlogInput(w http.ResponseWriter, in model.BlogInput) bool {
	missing := missingFields(map[string]string{"title": in.Title, "description": in.Description, "body": in.Body})
	if in.CategoryID <= 0 {
		missing = append(missing, "category_id: field required")
	}
	if len(missing) > 0 {
		writeValidation(w, missing...)
		return false
	}
	return true
}

// missingFields lists the blank fields in a stable order.
func missingFields(fields map[string]string) []string {
	var missing []string
	for _, name := range []string{"username", "email", "password", "title", "description", "body"} {
		value, ok := fields[name]
		if ok && strings.TrimSpace(value) == "" {
			missing = append(missing, name+": field required")
		}
	}
	return missing
}

type validationIssue struct {
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// writeValidation answers 422 with a list detail, the shape the backend uses
// for request validation failures.
func writeValidation(w http.ResponseWriter, msgs ...string) {
	issues := make([]validationIssue, len(msgs))
	for i, m := range msgs {
		issues[i] = validationIssue{Msg: m, Type: "value_error"}
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": issues})
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
