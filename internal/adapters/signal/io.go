package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

func (c *Connection) writePump(ctx context.Context, ws *websocket.Conn) {
	var tick <-chan time.Time
	if c.pingPeriod > 0 {
		ticker := time.NewTicker(c.pingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			c.logger.Debug().Msg("writePump ctx done")
			return
		case <-tick:
			if err := c.sendJSON(envelope{Type: msgPing}); err != nil {
				c.logger.Warn().Err(err).Msg("writePump ping")
			}
		case data := <-c.send:
			if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("writePump set deadline")
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error().Err(err).Msg("writePump write error")
				return
			}
		}
	}
}

func (c *Connection) readPump(ctx context.Context, ws *websocket.Conn) {
	defer c.logger.Debug().Msg("readPump closing")
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug().Err(err).Msg("readPump read error")
			}
			return
		}
		c.handleSignal(data)
	}
}

func (c *Connection) handleSignal(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Error().Err(err).Msg("bad json")
		return
	}

	room := c.currentRoom()
	switch env.Type {
	case msgPong:
		c.logger.Trace().Msg("pong")
	case msgRoomState:
		if room != nil {
			room.handleJoined(data)
		}
	case msgLeft:
		if room != nil {
			room.handleLeft()
		}
	case msgOffer:
		if room != nil {
			room.handleOffer(data)
		}
	case msgAnswer:
		if room != nil {
			room.handleAnswer(data)
		}
	case msgCandidate:
		if room != nil {
			room.handleCandidate(data)
		}
	case msgMemberLeft:
		if room != nil {
			room.handleMemberLeft(data)
		}
	case msgError:
		var p errorMessage
		_ = json.Unmarshal(data, &p)
		c.logger.Warn().Str("error", p.Error).Msg("server error")
		if room != nil {
			room.handleError(p.Error)
		}
	case msgMemberJoined, msgMemberUpdated, msgWhoAmI:
		c.logger.Debug().Str("type", env.Type).Msg("roster notice")
	default:
		c.logger.Warn().Str("type", env.Type).Msg("unknown signal")
	}
}
