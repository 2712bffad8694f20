package httpapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/netip"
	"time"

	"github.com/dia-accounts/dia"
	"github.com/dia-accounts/dia/jwt"
	"github.com/dia-accounts/dia/middleware"
	"github.com/dia-accounts/dia/refresh"
	"github.com/dia-accounts/dia/user"
	"github.com/google/uuid"
)

type createUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type userResponse struct {
	ID          uuid.UUID `json:"id"`
	Created     time.Time `json:"created"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Groups      []string  `json:"groups"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createRefreshTokenRequest struct {
	credentialsRequest
	ExpiresInSeconds      int64 `json:"expires_in_seconds"`
	MaxJWTLifetimeSeconds int64 `json:"max_jwt_lifetime_seconds"`
}

// listRefreshTokensRequest lists only unexpired tokens unless valid is sent as false.
type listRefreshTokensRequest struct {
	credentialsRequest
	Valid bool `json:"valid"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshTokenResponse struct {
	ID                    uuid.UUID `json:"id"`
	RefreshToken          string    `json:"refresh_token"`
	Created               time.Time `json:"created"`
	Expires               time.Time `json:"expires"`
	ClientAddress         string    `json:"client_address,omitempty"`
	MaxJWTLifetimeSeconds int64     `json:"max_jwt_lifetime_seconds"`
}

type signJWTRequest struct {
	RefreshToken    string `json:"refresh_token"`
	LifetimeSeconds int64  `json:"lifetime_seconds"`
}

type jwtRequest struct {
	JWT string `json:"jwt"`
}

type jwtResponse struct {
	JWT string `json:"jwt"`
}

type validateResponse struct {
	Valid  bool        `json:"valid"`
	Claims *jwt.Claims `json:"claims,omitempty"`
}

func (s *Server) ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var body createUserRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	addr, ok := clientAddress(w, r)
	if !ok {
		return
	}

	u, err := s.engine.CreateUser(r.Context(), addr, dia.CreateUserInput{
		Username:    body.Username,
		Email:       body.Email,
		DisplayName: body.DisplayName,
		Password:    body.Password,
	})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

// lookupUser returns the account behind a username and password. It charges the
// Login budget because it answers whether a credential pair is good.
func (s *Server) lookupUser(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	addr, ok := clientAddress(w, r)
	if !ok {
		return
	}

	if err := s.engine.CheckRateLimit(r.Context(), dia.GroupLogin, dia.AddressIdentifier(addr)); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	u, err := s.engine.FromCredentials(r.Context(), addr, body.Username, body.Password)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) createRefreshToken(w http.ResponseWriter, r *http.Request) {
	var body createRefreshTokenRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	addr, ok := clientAddress(w, r)
	if !ok {
		return
	}

	rec, err := s.engine.CreateRefreshToken(r.Context(), addr, dia.CreateRefreshTokenInput{
		Username:       body.Username,
		Password:       body.Password,
		ExpiresIn:      seconds(body.ExpiresInSeconds),
		MaxJWTLifetime: seconds(body.MaxJWTLifetimeSeconds),
	})
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRefreshTokenResponse(rec))
}

func (s *Server) listRefreshTokens(w http.ResponseWriter, r *http.Request) {
	body := listRefreshTokensRequest{Valid: true}
	if !decodeJSON(w, r, &body) {
		return
	}
	addr, ok := clientAddress(w, r)
	if !ok {
		return
	}

	records, err := s.engine.RefreshTokens(r.Context(), addr, body.Username, body.Password, body.Valid)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	out := make([]refreshTokenResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRefreshTokenResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) lookupRefreshToken(w http.ResponseWriter, r *http.Request) {
	var body refreshTokenRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	rec, err := s.engine.RefreshTokenFromString(r.Context(), body.RefreshToken)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefreshTokenResponse(rec))
}

func (s *Server) signJWT(w http.ResponseWriter, r *http.Request) {
	var body signJWTRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	token, err := s.engine.SignJWT(r.Context(), body.RefreshToken, seconds(body.LifetimeSeconds))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jwtResponse{JWT: token})
}

func (s *Server) publicKey(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/x-pem-file")
	w.Header().Set("X-Key-ID", s.engine.JWTKeyID())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.engine.JWTPublicKey())
}

// validateJWT answers 200 for any well-formed request; validity is in the body.
func (s *Server) validateJWT(w http.ResponseWriter, r *http.Request) {
	var body jwtRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	claims, err := s.engine.ValidateJWT(body.JWT)
	if err != nil {
		if errors.Is(err, dia.ErrEngineNotReady) {
			s.writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, validateResponse{Valid: false})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true, Claims: claims})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	writeJSON(w, http.StatusOK, claims.User)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func clientAddress(w http.ResponseWriter, r *http.Request) (netip.Addr, bool) {
	addr, ok := middleware.AddressFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return netip.Addr{}, false
	}
	return addr, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// seconds saturates instead of overflowing so huge inputs stay out of range.
func seconds(n int64) time.Duration {
	const limit = int64(math.MaxInt64 / int64(time.Second))
	switch {
	case n > limit:
		return math.MaxInt64
	case n < -limit:
		return math.MinInt64
	}
	return time.Duration(n) * time.Second
}

func toUserResponse(u user.User) userResponse {
	groups := u.Groups
	if groups == nil {
		groups = []string{}
	}
	return userResponse{
		ID:          u.ID,
		Created:     u.Created,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Groups:      groups,
	}
}

func toRefreshTokenResponse(rec refresh.Record) refreshTokenResponse {
	return refreshTokenResponse{
		ID:                    rec.ID,
		RefreshToken:          rec.TokenString,
		Created:               rec.Created,
		Expires:               rec.Expires,
		ClientAddress:         rec.ClientAddress,
		MaxJWTLifetimeSeconds: int64(rec.MaxJWTLifetime / time.Second),
	}
}
