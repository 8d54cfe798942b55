package inbound

import (
	"net"
	"strings"

	"github.com/danwahyudi/authgate/internal/auth/usecase"
	"github.com/danwahyudi/authgate/internal/pkg/authn"
	"github.com/danwahyudi/authgate/internal/pkg/goerror"
	"github.com/danwahyudi/authgate/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for the authentication workflows.
type HTTPEndpoint struct {
	uc uc
}

// RequestChallenge starts the self-service flow for a phone or email.
func (h *HTTPEndpoint) RequestChallenge(r *router.Request) (any, error) {
	var req RequestChallengeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RequestChallenge(r.Context(), usecase.RequestChallengeInput{
		Identifier: req.Identifier,
	})
	if err != nil {
		return nil, err
	}

	return ChallengeResponse{ContextID: resp.ContextID}, nil
}

// RequestAdminChallenge starts the administrative flow; the password is
// checked before any code is sent.
func (h *HTTPEndpoint) RequestAdminChallenge(r *router.Request) (any, error) {
	var req RequestAdminChallengeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RequestAdminChallenge(r.Context(), usecase.RequestAdminChallengeInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		return nil, err
	}

	return ChallengeResponse{ContextID: resp.ContextID}, nil
}

// CompleteChallenge verifies a code and opens a session.
func (h *HTTPEndpoint) CompleteChallenge(r *router.Request) (any, error) {
	var req CompleteChallengeRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.CompleteChallenge(r.Context(), usecase.CompleteChallengeInput{
		ContextID:  req.ContextID,
		Code:       req.Code,
		DeviceInfo: r.UserAgent(),
		IPAddress:  clientIP(r),
	})
	if err != nil {
		return nil, err
	}

	return TokenResponse{
		SessionToken: resp.SessionToken,
		RefreshToken: resp.RefreshToken,
		Role:         resp.Role,
	}, nil
}

// RefreshToken rotates a session from its refresh token.
func (h *HTTPEndpoint) RefreshToken(r *router.Request) (any, error) {
	var req RefreshTokenRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RefreshToken(r.Context(), usecase.RefreshTokenInput{
		RefreshToken: req.RefreshToken,
		DeviceInfo:   r.UserAgent(),
		IPAddress:    clientIP(r),
	})
	if err != nil {
		return nil, err
	}

	return TokenResponse{
		SessionToken: resp.SessionToken,
		RefreshToken: resp.RefreshToken,
		Role:         resp.Role,
	}, nil
}

// Logout terminates the presented session.
func (h *HTTPEndpoint) Logout(r *router.Request) (any, error) {
	err := h.uc.Logout(r.Context(), usecase.LogoutInput{
		SessionToken: bearerToken(r),
	})
	if err != nil {
		return nil, err
	}

	return nil, nil
}

// ListSessions returns the caller's active sessions. The acting user comes
// from the identity the authentication middleware resolved.
func (h *HTTPEndpoint) ListSessions(r *router.Request) (any, error) {
	info := authn.GetAuth(r.Context())
	if info == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	resp, err := h.uc.ListSessions(r.Context(), usecase.ListSessionsInput{UserID: info.UserID})
	if err != nil {
		return nil, err
	}

	out := make([]SessionItem, 0, len(resp.Sessions))
	for _, s := range resp.Sessions {
		out = append(out, SessionItem{
			DeviceInfo: s.DeviceInfo,
			IPAddress:  s.IPAddress,
			CreatedAt:  s.CreatedAt,
		})
	}

	return SessionsResponse{Sessions: out}, nil
}

func bearerToken(r *router.Request) string {
	p := strings.Fields(r.Header.Get("Authorization"))
	if len(p) != 2 || !strings.EqualFold(p[0], "Bearer") {
		return ""
	}
	return p[1]
}

// clientIP relies on the IP middleware having rewritten RemoteAddr to the
// real client address, which may or may not still carry a port.
func clientIP(r *router.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
