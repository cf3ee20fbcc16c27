package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tobiasps/signalmaster/internal/app"
	"github.com/tobiasps/signalmaster/internal/domain"
)

const sendBuffer = 32

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSController owns the websocket endpoint: it upgrades, assigns the
// connection id, and feeds inbound frames to the session controller.
type WSController struct {
	Hub      *Hub
	Sessions *app.Controller

	ReadLimit  int64
	PingPeriod time.Duration
}

func NewWSController(hub *Hub, sessions *app.Controller, readLimit int64, pingPeriod time.Duration) *WSController {
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &WSController{
		Hub:        hub,
		Sessions:   sessions,
		ReadLimit:  readLimit,
		PingPeriod: pingPeriod,
	}
}

func (ctl *WSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.signal").Msg("ws upgrade")
		return
	}

	id := domain.ClientID(uuid.NewString())
	log.Info().Str("module", "adapters.signal").Str("id", string(id)).Msg("new WS connection")

	conn := newConn(ws, sendBuffer)
	ctl.Hub.add(id, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, id, conn)
	go ctl.readPump(ctx, cancel, id, conn, c.GetHeader("Origin"))
}

func (ctl *WSController) writePump(ctx context.Context, id domain.ClientID, c *Conn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Warn().Err(err).Str("module", "adapters.signal").Str("id", string(id)).Msg("ping failed")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "adapters.signal").Str("id", string(id)).Msg("writePump set deadline")
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.signal").Str("id", string(id)).Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *WSController) readPump(ctx context.Context, cancel context.CancelFunc, id domain.ClientID, c *Conn, origin string) {
	defer func() {
		log.Info().Str("module", "adapters.signal").Str("id", string(id)).Msg("readPump closing")
		ctl.Sessions.Disconnect(id)
		ctl.Hub.remove(id)
		cancel()
		c.Close()
	}()

	if ctl.ReadLimit > 0 {
		c.ws.SetReadLimit(ctl.ReadLimit)
	}

	ctl.Sessions.Connect(id, origin)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.ws.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "adapters.signal").Str("id", string(id)).Msg("readPump read error")
				}
				return
			}
			ctl.handleFrame(id, data)
		}
	}
}

func (ctl *WSController) handleFrame(id domain.ClientID, data []byte) {
	var f struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		log.Warn().Err(err).Str("module", "adapters.signal").Str("id", string(id)).Msg("bad frame")
		return
	}
	if f.Type == "" {
		log.Warn().Str("module", "adapters.signal").Str("id", string(id)).Msg("frame without type")
		return
	}
	ctl.Sessions.HandleEvent(id, f.Type, f.Data)
}
