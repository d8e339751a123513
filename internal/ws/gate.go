package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/playpong/backend/internal/auth"
	"github.com/playpong/backend/internal/models"
)

// Application close codes. 4000-4999 is the range reserved for applications
// by RFC 6455.
const (
	closeUnauthorized     = 4401
	closePermissionDenied = 4403
	closeNotFound         = 4404
	closeValidation       = 4400
	closeConflict         = 4409
	closeInternal         = 4500
)

// authenticate resolves the identity behind a just-upgraded socket from the
// access cookie. The socket never sees an application frame on failure; it is
// closed with 4401 and no reason.
func authenticate(conn *websocket.Conn, r *http.Request, tokens *auth.TokenService) (*auth.Identity, bool) {
	cookie, err := r.Cookie(tokens.AccessCookieName())
	if err != nil || cookie.Value == "" {
		closeSilently(conn)
		return nil, false
	}
	ident, err := tokens.VerifyAccess(cookie.Value)
	if err != nil {
		closeSilently(conn)
		return nil, false
	}
	return ident, true
}

func closeSilently(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(closeUnauthorized, "")
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	conn.Close()
}

// closeWithError ends a socket whose setup failed, carrying the error kind as
// an application close code. Only used before the write pump starts.
func closeWithError(conn *websocket.Conn, err error) {
	code := closeInternal
	switch models.KindOf(err) {
	case models.KindAuthMissing, models.KindAuthInvalid, models.KindAuthExpired:
		code = closeUnauthorized
	case models.KindPermissionDenied:
		code = closePermissionDenied
	case models.KindNotFound:
		code = closeNotFound
	case models.KindValidation:
		code = closeValidation
	case models.KindConflict:
		code = closeConflict
	}

	reason := err.Error()
	if len(reason) > 120 {
		reason = reason[:120]
	}
	msg := websocket.FormatCloseMessage(code, reason)
	if werr := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); werr != nil {
		log.Printf("[WS] Failed to send close frame: %v", werr)
	}
	conn.Close()
}
