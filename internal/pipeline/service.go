package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/minutelabs/minute-core/internal/bus"
	"github.com/minutelabs/minute-core/internal/protocol"
)

// jobTimeout bounds one recording end to end, summary included.
const jobTimeout = 10 * time.Minute

// Service consumes transcription requests from the bus and publishes results.
type Service struct {
	bus    *bus.Client
	proc   *Processor
	ctx    context.Context
	cancel context.CancelFunc
	sub    *nats.Subscription
	wg     sync.WaitGroup
	ready  bool
}

func NewService(parent context.Context, busClient *bus.Client, proc *Processor) *Service {
	ctx, cancel := context.WithCancel(parent)
	return &Service{
		bus:    busClient,
		proc:   proc,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Service) Start() error {
	sub, err := s.bus.Conn().QueueSubscribe(protocol.SubjectJobRequest, "minute-workers", s.handleRequest)
	if err != nil {
		return fmt.Errorf("subscribe job requests: %w", err)
	}
	s.sub = sub
	s.ready = true
	return nil
}

func (s *Service) Close() {
	s.cancel()
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool {
	return s.ready
}

func (s *Service) handleRequest(msg *nats.Msg) {
	var req protocol.TranscribeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.bus.Logger().Warn("failed to decode job request", slogError(err))
		return
	}
	if req.AudioPath == "" {
		s.bus.Logger().Warn("job request missing audio path")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
		defer cancel()

		result, err := s.proc.Process(ctx, req)
		if err != nil {
			result = protocol.TranscribeResult{
				JobID:       req.JobID,
				Error:       err.Error(),
				CompletedAt: time.Now().UTC(),
			}
		}
		s.publishResult(msg.Reply, result)
	}()
}

func (s *Service) publishResult(reply string, result protocol.TranscribeResult) {
	data, err := json.Marshal(result)
	if err != nil {
		s.bus.Logger().Warn("failed to marshal job result", slogError(err))
		return
	}
	if err := s.bus.Conn().Publish(protocol.SubjectJobResult, data); err != nil {
		s.bus.Logger().Warn("failed to publish job result", slogError(err))
	}
	if reply != "" {
		if err := s.bus.Conn().Publish(reply, data); err != nil {
			s.bus.Logger().Warn("failed to answer job request", slogError(err))
		}
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
