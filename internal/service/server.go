package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

const maxRequestBody = 1 << 20

type Server struct {
	port      string
	baseURL   string
	qrSize    int
	shortener *Shortener
}

func NewServer(port, baseURL string, qrSize int, shortener *Shortener) *Server {
	return &Server{
		port:      port,
		baseURL:   strings.TrimRight(baseURL, "/"),
		qrSize:    qrSize,
		shortener: shortener,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handlerHealth)
	mux.HandleFunc("POST /shorten", s.handlerShorten)
	mux.HandleFunc("GET /stats/{code}", s.handlerStats)
	mux.HandleFunc("GET /qr/{code}", s.handlerQRCode)
	mux.HandleFunc("GET /{code}", s.handlerRedirect)
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx is cancelled, then waits up to
// five seconds for in-flight requests before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() { errChan <- srv.Serve(ln) }()
	slog.Info("HTTP server listening", "addr", ln.Addr().String(), "base_url", s.baseURL)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type shortenRequest struct {
	LongURL     string     `json:"long_url"`
	CustomAlias *string    `json:"custom_alias"`
	ExpiresAt   *time.Time `json:"expires_at"`
	OwnerID     *string    `json:"owner_id"`
}

type shortenResponse struct {
	ShortURL  string     `json:"short_url"`
	ShortCode string     `json:"short_code"`
	OwnerID   *string    `json:"owner_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Message   string     `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handlerHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlerShorten(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := ValidateTargetURL(req.LongURL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var alias string
	if req.CustomAlias != nil {
		alias = *req.CustomAlias
		if err := ValidateAlias(alias); err != nil {
			writeError(w, http.StatusBadRequest, "Alias is not allowed")
			return
		}
	}

	code, err := s.shortener.Allocate(r.Context(), AllocateRequest{
		TargetURL:   req.LongURL,
		CustomAlias: alias,
		ExpiresAt:   req.ExpiresAt,
		OwnerID:     req.OwnerID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAliasConflict):
			writeError(w, http.StatusBadRequest, "Alias already exists")
		case errors.Is(err, ErrGenerationExhausted):
			writeError(w, http.StatusBadRequest, "Unable to generate the Short URL")
		default:
			slog.Error("failed to allocate short code", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, shortenResponse{
		ShortURL:  ShortURL(s.baseURL, code),
		ShortCode: code,
		OwnerID:   req.OwnerID,
		ExpiresAt: req.ExpiresAt,
		Message:   "Short URL created successfully",
	})
}

func (s *Server) handlerRedirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Short code cannot be empty")
		return
	}
	target, err := s.shortener.Resolve(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "Short URL Not Found")
		case errors.Is(err, ErrExpired):
			writeError(w, http.StatusGone, "Short URL expired")
		default:
			slog.Error("failed to resolve short code", "code", code, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func (s *Server) handlerStats(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	link, err := s.shortener.GetRecord(r.Context(), code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Stats not found")
			return
		}
		slog.Error("failed to load stats", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (s *Server) handlerQRCode(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if _, err := s.shortener.GetRecord(r.Context(), code); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Short URL Not Found")
			return
		}
		slog.Error("failed to load link for qr code", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	png, err := EncodeQR(ShortURL(s.baseURL, code), s.qrSize)
	if err != nil {
		slog.Error("failed to encode qr code", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
