package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-user-go/pkg/utilities"
)

// Request is the envelope pushed onto the command queue.
type Request struct {
	ID      string          `json:"id"`
	Cmd     string          `json:"cmd"`
	Payload json.RawMessage `json:"payload,omitempty"`
	// ReplyTo names the list the reply is pushed to. Empty means no reply.
	ReplyTo string `json:"replyTo,omitempty"`
}

// Reply carries either data or err.
type Reply struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
	Err  *apperr.Error   `json:"err,omitempty"`
}

type ServerConfig struct {
	Queue    string
	Workers  int
	ReplyTTL time.Duration
	// PollWait bounds each BRPOP so workers notice cancellation.
	PollWait time.Duration
}

// Server consumes commands from a redis list and answers on per-request lists.
type Server struct {
	rdb    redis.Cmdable
	reg    *Registry
	cfg    ServerConfig
	logger *zap.SugaredLogger

	// ReportError receives failures that were answered with a 5xx.
	ReportError func(ctx context.Context, err error)
}

func NewServer(rdb redis.Cmdable, reg *Registry, cfg ServerConfig, logger *zap.SugaredLogger) *Server {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ReplyTTL <= 0 {
		cfg.ReplyTTL = 30 * time.Second
	}
	if cfg.PollWait <= 0 {
		cfg.PollWait = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{rdb: rdb, reg: reg, cfg: cfg, logger: logger}
}

// Run blocks until ctx is cancelled and every worker has returned.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Infow("broker listening", "queue", s.cfg.Queue, "workers", s.cfg.Workers)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.work(ctx, n)
		}(i)
	}
	wg.Wait()
	s.logger.Infow("broker stopped", "queue", s.cfg.Queue)
	return nil
}

func (s *Server) work(ctx context.Context, n int) {
	for ctx.Err() == nil {
		res, err := s.rdb.BRPop(ctx, s.cfg.PollWait, s.cfg.Queue).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Errorw("brpop failed", "worker", n, "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		// res is [queue, value]
		if len(res) == 2 {
			s.handle(ctx, res[1])
		}
	}
}

// handle runs one request to completion even when ctx is cancelled meanwhile,
// bounded by ReplyTTL.
func (s *Server) handle(ctx context.Context, raw string) {
	var req Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		s.logger.Warnw("dropping malformed request", "err", err)
		return
	}
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ReplyTTL)
	defer cancel()

	start := time.Now()
	data, err := s.reg.Dispatch(hctx, req.Cmd, req.Payload)
	reply := Reply{ID: req.ID}
	if err == nil {
		reply.Data, err = json.Marshal(data)
	}
	if err != nil {
		reply.Data = nil
		reply.Err = apperr.From(err)
		if reply.Err.Code >= 500 {
			s.logger.Errorw("command failed", "cmd", req.Cmd, "id", req.ID, "err", err)
			if s.ReportError != nil {
				s.ReportError(hctx, err)
			}
		}
	}
	s.logger.Debugw("command handled", "cmd", req.Cmd, "id", req.ID, "took", time.Since(start))

	if req.ReplyTo == "" {
		return
	}
	body, err := json.Marshal(reply)
	if err != nil {
		s.logger.Errorw("encode reply", "id", req.ID, "err", err)
		return
	}
	if err := s.rdb.LPush(hctx, req.ReplyTo, string(body)).Err(); err != nil {
		s.logger.Errorw("push reply", "id", req.ID, "reply_to", req.ReplyTo, "err", err)
		return
	}
	if err := s.rdb.Expire(hctx, req.ReplyTo, s.cfg.ReplyTTL).Err(); err != nil {
		s.logger.Warnw("expire reply", "reply_to", req.ReplyTo, "err", err)
	}
}

var ErrReplyTimeout = errors.New("rpc: no reply before timeout")

// Client sends commands to a Server and waits for the reply.
type Client struct {
	rdb     redis.Cmdable
	queue   string
	timeout time.Duration
	newID   func() string
}

func NewClient(rdb redis.Cmdable, queue string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{rdb: rdb, queue: queue, timeout: timeout, newID: utilities.NewKSUID}
}

// ReplyList is the list a reply for id is pushed to.
func (c *Client) ReplyList(id string) string {
	return c.queue + ":reply:" + id
}

// Call sends cmd with payload and decodes the reply data into out (which may
// be nil). A command failure is returned as *apperr.Error.
func (c *Client) Call(ctx context.Context, cmd string, payload any, out any) error {
	id := c.newID()
	req := Request{ID: id, Cmd: cmd, ReplyTo: c.ReplyList(id)}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		req.Payload = raw
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := c.rdb.LPush(ctx, c.queue, string(body)).Err(); err != nil {
		return fmt.Errorf("push request: %w", err)
	}

	res, err := c.rdb.BRPop(ctx, c.timeout, req.ReplyTo).Result()
	if errors.Is(err, redis.Nil) {
		return ErrReplyTimeout
	}
	if err != nil {
		return fmt.Errorf("wait reply: %w", err)
	}
	if len(res) != 2 {
		return fmt.Errorf("wait reply: unexpected result %v", res)
	}
	var rep Reply
	if err := json.Unmarshal([]byte(res[1]), &rep); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	if rep.ID != id {
		return fmt.Errorf("reply id %q does not match request %q", rep.ID, id)
	}
	if rep.Err != nil {
		return rep.Err
	}
	if out != nil && len(rep.Data) > 0 {
		if err := json.Unmarshal(rep.Data, out); err != nil {
			return fmt.Errorf("decode reply data: %w", err)
		}
	}
	return nil
}
