package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fulfilhub/dashboard/internal/api"
	"github.com/fulfilhub/dashboard/internal/shared"
)

var loginRequest = api.NewRequest[Identity]("/auth/login", http.MethodPost, api.WithoutAuth()).
	WithTransform(decodeIdentity)

// Service exchanges credentials for a backend session.
type Service struct {
	client *api.Client
}

// NewService constructs a new Service.
func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// Authenticate logs in against the backend. Rejected credentials map to
// shared.ErrInvalidCredentials and roles outside the fixed set to
// shared.ErrUnknownRole; connectivity failures are returned unchanged.
func (s *Service) Authenticate(ctx context.Context, username, password string) (shared.Session, error) {
	identity, err := loginRequest.Do(ctx, s.client, shared.Session{}, api.Call{
		Body: Credentials{Username: username, Password: password},
	})
	if err != nil {
		var respErr *api.ResponseError
		if errors.As(err, &respErr) && respErr.Status < http.StatusInternalServerError {
			return shared.Session{}, fmt.Errorf("%w: %w", shared.ErrInvalidCredentials, err)
		}
		return shared.Session{}, err
	}
	role, ok := shared.ParseRole(identity.Role)
	if !ok {
		return shared.Session{}, fmt.Errorf("%w: %q", shared.ErrUnknownRole, identity.Role)
	}
	sess := shared.Session{Token: identity.Token, Username: identity.Username, Role: role}
	if sess.Username == "" {
		sess.Username = username
	}
	if !sess.Authenticated() {
		return shared.Session{}, shared.ErrInvalidCredentials
	}
	return sess, nil
}

// decodeIdentity accepts the identity either at the top level or inside "data".
func decodeIdentity(raw json.RawMessage) (Identity, error) {
	var env struct {
		Data *Identity `json:"data"`
		Identity
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return Identity{}, fmt.Errorf("auth: decode login response: %w", err)
	}
	id := env.Identity
	if env.Data != nil {
		id = *env.Data
	}
	return id, nil
}
