package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"sulamboard/internal/backend"
	"sulamboard/internal/model"
	"sulamboard/internal/session"
)

// ErrNotAuthenticated is returned when no valid session backs a request.
var ErrNotAuthenticated = errors.New("not authenticated")

// AuthService logs dashboard users into the remote backend and manages their
// sessions.
type AuthService struct {
	client   *backend.Client
	sessions *session.Store
	tokens   *session.TokenManager
}

// NewAuthService creates a new auth service.
func NewAuthService(client *backend.Client, sessions *session.Store, tokens *session.TokenManager) *AuthService {
	return &AuthService{
		client:   client,
		sessions: sessions,
		tokens:   tokens,
	}
}

// Login exchanges credentials for a dashboard session token. The backend
// token and the current user are cached on the session record.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	backendToken, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	user, err := s.client.GetSelf(ctx, backendToken)
	if err != nil {
		return nil, fmt.Errorf("fetch current user: %w", err)
	}

	sessionID, err := s.sessions.Create(ctx, &session.Data{
		BackendToken: backendToken,
		User:         user,
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(sessionID)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: token, User: user}, nil
}

// Resolve validates a dashboard token and loads its session.
func (s *AuthService) Resolve(ctx context.Context, token string) (string, *session.Data, error) {
	sessionID, err := s.tokens.Validate(token)
	if err != nil {
		return "", nil, ErrNotAuthenticated
	}
	data, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return "", nil, ErrNotAuthenticated
	}
	if err != nil {
		return "", nil, err
	}
	return sessionID, data, nil
}

// CurrentUser re-validates the session's backend credential and refreshes
// the cached user. A backend auth failure destroys the session; a transport
// failure serves the cached user instead, so an unreachable server never
// reads as a logout.
func (s *AuthService) CurrentUser(ctx context.Context, sessionID string, data *session.Data) (*model.User, error) {
	user, err := s.client.GetSelf(ctx, data.BackendToken)
	if errors.Is(err, backend.ErrUnauthorized) {
		s.Invalidate(ctx, sessionID)
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		if data.User != nil {
			log.Printf("get_self failed, serving cached user: %v", err)
			return data.User, nil
		}
		return nil, err
	}

	if err := s.sessions.SetUser(ctx, sessionID, user); err != nil {
		log.Printf("failed to refresh cached user: %v", err)
	}
	return user, nil
}

// Invalidate destroys a session. Used on logout and on backend auth
// failures.
func (s *AuthService) Invalidate(ctx context.Context, sessionID string) {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		log.Printf("failed to delete session %s: %v", sessionID, err)
	}
}
