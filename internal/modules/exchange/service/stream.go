package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"market_maker/internal/models"
)

var ErrNotConnected = errors.New("stream: not connected")

// Stream — одно websocket-подключение к bookTicker. Переподключений внутри нет:
// при обрыве Listen отдаёт ошибку и заканчивается, дальше решает супервизор.
type Stream struct {
	dialer      *websocket.Dialer
	url         string
	readTimeout time.Duration
	log         *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID int64
}

func (c *Client) NewStream() *Stream {
	return &Stream{
		dialer:      c.wsDialer,
		url:         c.wsURL,
		readTimeout: c.readTimeout,
		log:         c.log.Named("ws"),
	}
}

func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.log.Info("[WS] connected", zap.String("url", s.url))
	return nil
}

// SubscribeTopOfBook — подписка на <symbol>@bookTicker.
func (s *Stream) SubscribeTopOfBook(ctx context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}

	s.nextID++
	payload, err := sonic.Marshal(map[string]any{
		"method": "SUBSCRIBE",
		"params": []string{strings.ToLower(symbol) + "@bookTicker"},
		"id":     s.nextID,
	})
	if err != nil {
		return fmt.Errorf("subscribe marshal: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
		defer func() { _ = s.conn.SetWriteDeadline(time.Time{}) }()
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("subscribe %s: %w", symbol, err)
	}
	return nil
}

// Listen отдаёт котировки, пока соединение живо. Ответы на подписку и
// нераспознанные кадры пропускаются. Ошибка чтения отдаётся один раз в конце.
func (s *Stream) Listen(ctx context.Context) iter.Seq2[models.BookTicker, error] {
	return func(yield func(models.BookTicker, error) bool) {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			yield(models.BookTicker{}, ErrNotConnected)
			return
		}

		// закрываем сокет по ctx, чтобы разблокировать ReadMessage
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		defer stop()

		for {
			if s.readTimeout > 0 {
				_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
			}
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				yield(models.BookTicker{}, fmt.Errorf("read: %w", err))
				return
			}

			var frame bookTickerFrame
			if err := sonic.Unmarshal(msg, &frame); err != nil {
				s.log.Debug("[WS] skip frame", zap.Error(err))
				continue
			}
			if frame.Event != "bookTicker" {
				continue
			}

			if !yield(models.BookTicker{
				Symbol:  frame.Symbol,
				BestBid: frame.Bid,
				BestAsk: frame.Ask,
			}, nil) {
				return
			}
		}
	}
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
