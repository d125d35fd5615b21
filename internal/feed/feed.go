// Package feed is the tick-server client: a websocket stream of trade
// frames plus an HTTP control surface for server-side day replay.
package feed

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"
)

const (
	_defaultHTTPTimeout = 10 * time.Second
	_heartbeatInterval  = 30 * time.Second
)

type Feed struct {
	wss  *ws.WebSocket
	http *resty.Client
}

// New dials nothing yet; StartWebsocket opens the stream.
// replayURL may be empty when replay control is not needed.
func New(ctx context.Context, wsURL, replayURL string) *Feed {
	f := &Feed{
		wss: ws.New(ctx, wsURL),
	}

	if len(replayURL) != 0 {
		f.http = resty.New().
			SetBaseURL(replayURL).
			SetTimeout(_defaultHTTPTimeout).
			SetRetryCount(3)
	}

	return f
}

func (f *Feed) Len() int {
	return f.wss.Len()
}

func (f *Feed) Close() {
	f.wss.Close()
}

func (f *Feed) StartWebsocket(ctx context.Context) error {
	if err := f.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}

	return nil
}

type subscribeRequest struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

type subscribeResponse struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
	Error   string   `json:"error"`
}

func subscribeResponseParser(m ws.Message) (subscribeResponse, bool) {
	var resp subscribeResponse
	err := m.Unmarshal(&resp)
	return resp, err == nil
}

// Subscribe registers the symbol list with the tick server and waits
// for the acknowledgement.
func (f *Feed) Subscribe(ctx context.Context, symbols []string) error {
	appendIntoRegister := true
	if err := f.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, ws *ws.WebSocket) error {
			payload := subscribeRequest{
				Type:    "subscribe",
				Symbols: symbols,
			}

			if err := ws.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}

			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			resp, ok := subscribeResponseParser(m)
			if !ok || resp.Type != "subscribed" {
				return false, nil
			}

			if len(resp.Error) != 0 {
				return false, errors.Errorf("subscribe, err: %s", resp.Error)
			}

			return true, nil
		},
	}, appendIntoRegister); err != nil {
		return errors.Wrap(err, "send and wait")
	}

	return nil
}

// Frame is one trade print. Timestamp is microseconds since local
// midnight; Price10 is the price scaled by ten.
type Frame struct {
	Timestamp int64           `json:"timestamp"`
	Price10   decimal.Decimal `json:"price10"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type tickMessage struct {
	Type   string             `json:"type"`
	Frames map[string][]Frame `json:"frames"`
}

// ObserveFrames delivers each batch of frames keyed by symbol code.
// Heartbeat messages are consumed here and never reach the handler.
func (f *Feed) ObserveFrames(ctx context.Context, handler func(symbol string, frames []Frame)) (unsubscribe func()) {
	ch, cancel := f.wss.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				msg, ok := ws.ReadMessage[tickMessage](m)
				if !ok {
					continue
				}

				if msg.Type == "heartbeat" {
					continue
				}

				if len(msg.Frames) == 0 {
					continue
				}

				for symbol, frames := range msg.Frames {
					handler(symbol, frames)
				}
			}
		}
	}()

	return cancel
}

type heartbeatMessage struct {
	Type string `json:"type"`
}

// RunHeartbeat pings the server on a fixed interval until the context
// ends. The server drops clients that stay silent too long.
func (f *Feed) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(_heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sys.Shutdown():
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.wss.WriteJSON(heartbeatMessage{Type: "heartbeat"}); err != nil {
				logs.Errorf("write heartbeat, err: %+v", err)
			}
		}
	}
}

type replayRequest struct {
	Date    string   `json:"date"`
	Symbols []string `json:"symbols"`
	Speed   float64  `json:"speed"`
}

// StartReplay asks the tick server to stream a recorded day over the
// websocket. date is formatted YYYYMMDD; speed 0 means no pacing.
func (f *Feed) StartReplay(ctx context.Context, date string, symbols []string, speed float64) error {
	if f.http == nil {
		return errors.New("replay url not configured")
	}

	resp, err := f.http.R().
		SetContext(ctx).
		SetBody(replayRequest{Date: date, Symbols: symbols, Speed: speed}).
		Post("/replay/start")
	if err != nil {
		return errors.Wrap(err, "start replay").With("date", date)
	}
	if resp.IsError() {
		return errors.Errorf("start replay, status: %s, body: %s", resp.Status(), resp.String())
	}

	logs.Infof("replay started: date=%s symbols=%d speed=%.1f", date, len(symbols), speed)
	return nil
}

// StopReplay cancels an in-flight server-side replay.
func (f *Feed) StopReplay(ctx context.Context) error {
	if f.http == nil {
		return errors.New("replay url not configured")
	}

	resp, err := f.http.R().
		SetContext(ctx).
		Post("/replay/stop")
	if err != nil {
		return errors.Wrap(err, "stop replay")
	}
	if resp.IsError() {
		return errors.Errorf("stop replay, status: %s, body: %s", resp.Status(), resp.String())
	}

	return nil
}
