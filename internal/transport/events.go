package transport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/junker098/universe-app/internal/imageproc"
	"github.com/junker098/universe-app/internal/model"
	"github.com/junker098/universe-app/internal/mwlogger"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	thumbnailSize = 64
)

// wsEvent is model.Event as seen by a browser. Thumbnail is an inline data URL
// shown while the full preview is being fetched.
type wsEvent struct {
	model.Event
	PreviewURL string `json:"preview_url,omitempty"`
	Thumbnail  string `json:"thumbnail,omitempty"`
}

// wsCommand is what a screen may send back over the socket.
type wsCommand struct {
	Action string `json:"action"`
}

type eventClient struct {
	conn     *websocket.Conn
	review   ReviewService
	previews *PreviewCache
	events   <-chan model.Event
	replies  chan model.Event
	done     chan struct{}
	logger   zlog.Zerolog
}

// Events upgrades the request and streams review events until either side
// goes away.
func (h ReviewHandler) Events(ctx *ginext.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		logger := mwlogger.LoggerFromContext(ctx.Request.Context())
		logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	events, cancel := h.review.Subscribe()
	c := &eventClient{
		conn:     conn,
		review:   h.review,
		previews: h.previews,
		events:   events,
		replies:  make(chan model.Event, 8),
		done:     make(chan struct{}),
		logger:   mwlogger.LoggerFromContext(ctx.Request.Context()),
	}

	go c.writePump()
	c.readPump(context.WithoutCancel(ctx.Request.Context()))
	cancel()
}

// readPump executes commands from the screen. It returns when the socket is
// closed and signals writePump through done.
func (c *eventClient) readPump(ctx context.Context) {
	defer close(c.done)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}

		var cmd wsCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.reply("invalid message format")
			continue
		}
		if err := c.run(ctx, cmd.Action); err != nil {
			c.reply(err.Error())
		}
	}
}

func (c *eventClient) run(ctx context.Context, action string) error {
	switch action {
	case "start":
		return c.review.Start(ctx)
	case "mark":
		return c.review.MarkCurrent(ctx)
	case "advance":
		return c.review.Advance(ctx)
	}
	return model.ErrIncorrectQuery
}

// reply reaches only this client and never blocks the reader.
func (c *eventClient) reply(msg string) {
	select {
	case c.replies <- model.Event{Kind: model.EventError, Message: msg, At: time.Now().UTC()}:
	default:
	}
}

func (c *eventClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-c.events:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(ev); err != nil {
				return
			}
		case ev := <-c.replies:
			if err := c.write(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *eventClient) write(ev model.Event) error {
	msg := wsEvent{Event: ev}
	if ev.Kind == model.EventPhotoReady && !ev.Blank && ev.Image != nil && c.previews != nil {
		// превью должно быть в кэше раньше, чем браузер за ним придет
		if _, ok := c.previews.Get(ev.PhotoID); !ok {
			if err := c.previews.Put(ev.PhotoID, ev.Image); err != nil {
				c.logger.Error().Err(err).Str("photo_id", ev.PhotoID).Msg("Failed to render preview")
			}
		}
		msg.PreviewURL = previewURL(ev.PhotoID)

		thumb, err := imageproc.ThumbnailDataURL(ev.Image, thumbnailSize)
		if err != nil {
			c.logger.Error().Err(err).Str("photo_id", ev.PhotoID).Msg("Failed to render thumbnail")
		}
		msg.Thumbnail = thumb
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to write event to websocket")
		return err
	}
	return nil
}
