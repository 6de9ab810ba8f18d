package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/securedocs/backend/config"
	"github.com/securedocs/backend/internal/api/middleware"
	"github.com/securedocs/backend/internal/models"
	"github.com/securedocs/backend/internal/services"
	"github.com/securedocs/backend/internal/store"
)

// AuthHandler handles wallet based authentication
type AuthHandler struct {
	users       *store.UserStore
	eth         *services.EthereumService
	entitlement *services.Entitlement
	cfg         *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *store.UserStore, eth *services.EthereumService, entitlement *services.Entitlement, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		users:       users,
		eth:         eth,
		entitlement: entitlement,
		cfg:         cfg,
	}
}

// NonceRequest represents the request for generating a nonce
// @Description Request body for generating a nonce
type NonceRequest struct {
	Address string `json:"address" binding:"required,hexadecimal" example:"0x742d35Cc6634C0532925a3b844Bc454e4438f44e"`
}

// NonceResponse represents the response containing the generated nonce
// @Description Response containing the generated nonce and the message to sign
type NonceResponse struct {
	Nonce   string `json:"nonce" example:"7a39f642c2608fd2bded0c35b1612d8716757326f870b6bd3f6cb7824f2b5c6d"`
	Message string `json:"message" example:"Sign this message to authenticate with SecureDocs: 7a39f642..."`
}

// StatusResponse represents the response for checking authentication status
// @Description Response containing authentication status
type StatusResponse struct {
	Authenticated        bool   `json:"authenticated"`
	Address              string `json:"address,omitempty"`
	RemoteStorageAllowed bool   `json:"remoteStorageAllowed"`
}

func newNonce() (string, error) {
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(nonceBytes), nil
}

// GenerateNonce godoc
// @Summary Generate Authentication Nonce
// @Description Generates a nonce for wallet signature authentication
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body NonceRequest true "Wallet address"
// @Success 200 {object} NonceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/nonce [post]
func (h *AuthHandler) GenerateNonce(c *gin.Context) {
	var req NonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request: " + err.Error()})
		return
	}
	if !common.IsHexAddress(req.Address) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid wallet address"})
		return
	}

	nonce, err := newNonce()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate nonce"})
		return
	}

	if _, err := h.users.SetNonce(c.Request.Context(), req.Address, nonce); err != nil {
		log.WithError(err).WithField("address", req.Address).Error("Failed to store nonce")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to update nonce"})
		return
	}

	c.JSON(http.StatusOK, NonceResponse{
		Nonce:   nonce,
		Message: services.LoginMessage(nonce),
	})
}

// VerifyRequest represents the request for verifying a signature
// @Description Request body for verifying a signature
type VerifyRequest struct {
	Address   string `json:"address" binding:"required,hexadecimal" example:"0x742d35Cc6634C0532925a3b844Bc454e4438f44e"`
	Signature string `json:"signature" binding:"required,hexadecimal" example:"0x..."`
	Message   string `json:"message,omitempty" example:"Sign this message to authenticate with SecureDocs: abcd1234..."`
}

// VerifyResponse represents the response for a verification request
// @Description Response containing the JWT token and expiration
type VerifyResponse struct {
	Token   string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Expires int64  `json:"expires" example:"1679529600"`
}

// VerifySignature godoc
// @Summary Verify Signature
// @Description Verifies the signed login message and issues a JWT token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Address and signature"
// @Success 200 {object} VerifyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/verify [post]
func (h *AuthHandler) VerifySignature(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByWallet(ctx, req.Address)
	if err != nil || user.Nonce == "" {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.WithError(err).Error("Failed to load user")
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid wallet address"})
		return
	}

	message := services.LoginMessage(user.Nonce)
	if req.Message != "" && req.Message != message {
		log.WithField("address", user.WalletAddress).Debug("Login message does not match the issued nonce")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid message format"})
		return
	}

	valid, err := h.eth.VerifySignature(req.Address, message, req.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to verify signature: " + err.Error()})
		return
	}
	if !valid {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid signature"})
		return
	}

	// a nonce signs exactly one login
	nonce, err := newNonce()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate nonce"})
		return
	}
	if _, err := h.users.SetNonce(ctx, user.WalletAddress, nonce); err != nil {
		log.WithError(err).Error("Failed to rotate nonce")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to update nonce"})
		return
	}

	expirationTime := time.Now().Add(h.cfg.JWT.Expiration)
	claims := &models.JWTClaims{
		UserID:        user.ID,
		WalletAddress: user.WalletAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWT.Secret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate token"})
		return
	}

	c.SetCookie(middleware.CookieName, tokenString, int(h.cfg.JWT.Expiration.Seconds()), "/", "", h.cfg.Server.IsProduction(), true)

	log.WithField("userID", user.ID).Info("User authenticated")
	c.JSON(http.StatusOK, VerifyResponse{
		Token:   tokenString,
		Expires: expirationTime.Unix(),
	})
}

// CheckAuthStatus godoc
// @Summary Check Authentication Status
// @Description Checks the session cookie and whether the user may copy files to remote storage
// @Tags Authentication
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /auth/status [get]
func (h *AuthHandler) CheckAuthStatus(c *gin.Context) {
	tokenString, err := c.Cookie(middleware.CookieName)
	if err != nil {
		c.JSON(http.StatusOK, StatusResponse{Authenticated: false})
		return
	}

	claims, err := middleware.ParseToken(tokenString, h.cfg.JWT.Secret)
	if err != nil {
		c.SetCookie(middleware.CookieName, "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, StatusResponse{Authenticated: false})
		return
	}

	allowed := false
	ctx := c.Request.Context()
	if user, err := h.users.GetByID(ctx, claims.UserID); err == nil {
		allowed = h.entitlement.Allowed(ctx, user)
	} else if !errors.Is(err, store.ErrNotFound) {
		log.WithError(err).WithField("userID", claims.UserID).Error("Error loading user in /auth/status")
	}

	c.JSON(http.StatusOK, StatusResponse{
		Authenticated:        true,
		Address:              claims.WalletAddress,
		RemoteStorageAllowed: allowed,
	})
}

// Logout godoc
// @Summary Logout User
// @Description Logs out the user by clearing the JWT cookie
// @Tags Authentication
// @Produce json
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(middleware.CookieName, "", -1, "/", "", false, true)

	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully logged out",
	})
}
