package handler

import (
	"context"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gigmarket/contract-hub/internal/core/chat"
	"github.com/gigmarket/contract-hub/internal/core/domain"
	"github.com/gigmarket/contract-hub/internal/core/registry"
	"github.com/gigmarket/contract-hub/internal/infrastructure/ws"
)

// TokenAuthenticator resolves a bearer token to an identity.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Identity, error)
}

// RoomHub is the part of chat.Hub the endpoint drives.
type RoomHub interface {
	Authorize(ctx context.Context, contractID, userID int64) (registry.Entry, error)
	Connect(ctx context.Context, contractID, userID int64, socket chat.Socket) (*chat.Conn, error)
	Serve(conn *chat.Conn)
}

// ChatHandler upgrades authorized requests into contract room connections.
type ChatHandler struct {
	auth     TokenAuthenticator
	hub      RoomHub
	upgrader *websocket.Upgrader
	opts     ws.Options
	log      zerolog.Logger
}

func NewChatHandler(auth TokenAuthenticator, hub RoomHub, upgrader *websocket.Upgrader, opts ws.Options, log zerolog.Logger) *ChatHandler {
	if upgrader == nil {
		upgrader = ws.NewUpgrader(nil)
	}
	return &ChatHandler{auth: auth, hub: hub, upgrader: upgrader, opts: opts, log: log}
}

// Connect handles GET /ws/contracts/:contract_id?token=...
//
// Authentication and authorization run before the upgrade, so a rejected
// caller gets a plain HTTP error and never a half-open socket.
//
// @Summary      Join the real-time room of a contract
// @Tags         contracts
// @Param        contract_id  path   int     true  "Contract id"
// @Param        token        query  string  true  "Bearer token"
// @Success      101
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /ws/contracts/{contract_id} [get]
func (h *ChatHandler) Connect(c echo.Context) error {
	contractID, err := pathID(c, "contract_id")
	if err != nil {
		return err
	}

	token := c.QueryParam("token")
	if token == "" {
		token = strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	}
	if token == "" {
		return domain.ErrUnauthenticated
	}

	ctx := c.Request().Context()
	identity, err := h.auth.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if _, err := h.hub.Authorize(ctx, contractID, identity.UserID); err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the failure response
		h.log.Debug().Err(err).Int64("contract_id", contractID).Msg("websocket upgrade failed")
		return nil
	}

	socket := ws.Wrap(conn, h.opts)
	room, err := h.hub.Connect(ctx, contractID, identity.UserID, socket)
	if err != nil {
		h.log.Warn().Err(err).
			Int64("contract_id", contractID).
			Int64("user_id", identity.UserID).
			Msg("room attach failed after upgrade")
		_ = socket.Close()
		return nil
	}

	h.hub.Serve(room)
	return nil
}
