package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/tubequery/internal/common"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type urlRequest struct {
	URL string `json:"url"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeServiceError maps the sentinel error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusConflict, "username already exists")
	case errors.Is(err, common.ErrNoDocuments):
		writeError(w, http.StatusConflict, "no documents ingested yet")
	case errors.Is(err, common.ErrNoIndex):
		writeError(w, http.StatusConflict, "no index built yet")
	case errors.Is(err, common.ErrUpstream):
		writeError(w, http.StatusBadGateway, "upstream failure")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if _, err := s.users.Register(r.Context(), req.Username, req.Password); err != nil {
		s.logger.Error(r.Context(), "registration failed", "username", req.Username, "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "user created successfully"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		AccessToken string `json:"access_token"`
	}{AccessToken: token})
}

func (s *Server) handleAddData(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "no URL provided")
		return
	}

	text, err := s.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		s.logger.Error(r.Context(), "transcript fetch failed", "username", username, "error", err.Error())
		writeServiceError(w, err)
		return
	}

	if _, err := s.documents.Ingest(r.Context(), username, text); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "data added successfully"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "no URL provided")
		return
	}

	text, err := s.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := s.summarizer.Summarize(r.Context(), text)
	if err != nil {
		s.logger.Error(r.Context(), "summarization failed", "username", username, "error", err.Error())
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(result))
}

func (s *Server) handleRemoveData(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.documents.Purge(r.Context(), username); err != nil {
		s.logger.Error(r.Context(), "purge failed", "username", username, "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "data deleted successfully"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.builder.Rebuild(r.Context(), username); err != nil {
		s.logger.Error(r.Context(), "rebuild failed", "username", username, "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "your chat is ready now"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "no query provided")
		return
	}

	answer, err := s.gateway.Query(r.Context(), username, req.Query)
	if err != nil {
		s.logger.Error(r.Context(), "query failed", "username", username, "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Result string `json:"result"`
	}{Result: answer})
}
