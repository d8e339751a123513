package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/playpong/backend/internal/auth"
	"github.com/playpong/backend/internal/store"
)

// Register creates a new player account.
func Register(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "username and password required"})
			return
		}

		username := strings.TrimSpace(req.Username)
		if len(username) < 3 || len(username) > 20 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "username must be 3-20 characters"})
			return
		}
		if len(req.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "password must be at least 8 characters"})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondError(c, err)
			return
		}

		player, err := st.CreatePlayer(c.Request.Context(), username, hash)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"status": "success", "player": publicPlayer(player)})
	}
}

// Login checks the password and either sets the cookie pair or, when 2FA is
// enabled, stashes the pair and hands back an opaque login token for the
// second step.
func Login(st *store.Store, rdb *redis.Client, tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "username and password required"})
			return
		}

		ctx := c.Request.Context()
		player, err := st.PlayerByUsername(ctx, strings.TrimSpace(req.Username))
		if err != nil || !auth.CheckPassword(player.PasswordHash, req.Password) {
			// Unknown user and wrong password look identical to the caller.
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid username or password"})
			return
		}

		pair, err := tokens.MintPair(player.ID, player.Username)
		if err != nil {
			respondError(c, err)
			return
		}

		if player.TwoFactorEnabled {
			loginToken, err := auth.StashPendingLogin(ctx, rdb, auth.PendingLogin{
				PlayerID: player.ID,
				Username: player.Username,
				Access:   pair.Access,
				Refresh:  pair.Refresh,
			})
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{
				"status":      "success",
				"require_2fa": true,
				"login_token": loginToken,
			})
			return
		}

		setPairCookies(c, tokens, pair)
		c.JSON(http.StatusOK, gin.H{"status": "success", "player": publicPlayer(player)})
	}
}

// Verify2FA completes a stashed login with a TOTP code.
func Verify2FA(st *store.Store, rdb *redis.Client, tokens *auth.TokenService, twofactor *auth.TwoFactor) gin.HandlerFunc {
	return completeStashedLogin(st, rdb, tokens, func(c *gin.Context, pending *auth.PendingLogin, code string) error {
		player, err := st.PlayerByID(c.Request.Context(), pending.PlayerID)
		if err != nil {
			return err
		}
		return twofactor.VerifyLoginCode(player, code)
	})
}

// UseBackupCode completes a stashed login by burning one backup code.
func UseBackupCode(st *store.Store, rdb *redis.Client, tokens *auth.TokenService, twofactor *auth.TwoFactor) gin.HandlerFunc {
	return completeStashedLogin(st, rdb, tokens, func(c *gin.Context, pending *auth.PendingLogin, code string) error {
		return twofactor.UseBackupCode(c.Request.Context(), pending.PlayerID, code)
	})
}

// completeStashedLogin is the shared second half of both 2FA login steps: a
// failed code leaves the stash in place so the player can retry, a valid one
// consumes it and emits the cookies minted at password time.
func completeStashedLogin(st *store.Store, rdb *redis.Client, tokens *auth.TokenService, verify func(*gin.Context, *auth.PendingLogin, string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			LoginToken string `json:"login_token"`
			Code       string `json:"code"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "login_token and code required"})
			return
		}

		ctx := c.Request.Context()
		pending, err := auth.PendingLoginByToken(ctx, rdb, req.LoginToken)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := verify(c, pending, strings.TrimSpace(req.Code)); err != nil {
			respondError(c, err)
			return
		}
		auth.ConsumePendingLogin(ctx, rdb, req.LoginToken)

		player, err := st.PlayerByID(ctx, pending.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}

		setPairCookies(c, tokens, &auth.TokenPair{Access: pending.Access, Refresh: pending.Refresh})
		c.JSON(http.StatusOK, gin.H{"status": "success", "player": publicPlayer(player)})
	}
}

// Logout blacklists the refresh token and clears both cookies.
func Logout(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if refreshRaw, err := c.Cookie(tokens.RefreshCookieName()); err == nil && refreshRaw != "" {
			if err := tokens.RevokeRefresh(c.Request.Context(), refreshRaw); err != nil {
				respondError(c, err)
				return
			}
		}
		for _, cookie := range tokens.ClearCookies() {
			http.SetCookie(c.Writer, cookie)
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "logged out"})
	}
}

// Setup2FA stages a TOTP secret and returns the provisioning QR code.
func Setup2FA(st *store.Store, twofactor *auth.TwoFactor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		player, err := st.PlayerByID(c.Request.Context(), ident.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}
		qr, err := twofactor.Setup(c.Request.Context(), player)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "qr_code": qr})
	}
}

// Enable2FA verifies the first code and returns the one-time backup codes.
func Enable2FA(st *store.Store, twofactor *auth.TwoFactor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		var req struct {
			Code string `json:"code"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "code required"})
			return
		}
		player, err := st.PlayerByID(c.Request.Context(), ident.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}
		codes, err := twofactor.Enable(c.Request.Context(), player, strings.TrimSpace(req.Code))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "backup_codes": codes})
	}
}

// Disable2FA turns 2FA off after a valid code.
func Disable2FA(st *store.Store, twofactor *auth.TwoFactor) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		var req struct {
			Code string `json:"code"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "code required"})
			return
		}
		player, err := st.PlayerByID(c.Request.Context(), ident.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := twofactor.Disable(c.Request.Context(), player, strings.TrimSpace(req.Code)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "two-factor authentication disabled"})
	}
}
