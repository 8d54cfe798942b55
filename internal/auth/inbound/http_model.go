package inbound

import "time"

type RequestChallengeRequest struct {
	Identifier string `json:"identifier"`
}

type RequestAdminChallengeRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type ChallengeResponse struct {
	ContextID string `json:"context_id"`
}

func (ChallengeResponse) Message() string {
	return "A verification code has been sent."
}

type CompleteChallengeRequest struct {
	ContextID string `json:"context_id"`
	Code      string `json:"code"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	SessionToken string `json:"session_token"`
	RefreshToken string `json:"refresh_token"`
	Role         string `json:"role"`
}

type SessionItem struct {
	DeviceInfo string    `json:"device_info"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
}

type SessionsResponse struct {
	Sessions []SessionItem `json:"sessions"`
}
