package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"
	"time"

	"satchel/internal/api"
	"satchel/internal/daemon"
	"satchel/internal/intake"
	"satchel/internal/logging"
	"satchel/internal/logs"
	"satchel/internal/queue"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Satchel", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun satchel stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.log().Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.Online = status.Online
	resp.PID = status.PID
	resp.Endpoint = status.Endpoint
	resp.QueueDBPath = status.QueueDBPath
	resp.LockPath = status.LockFilePath
	resp.QueueStats = make(map[string]int64, len(status.QueueStats))
	for st, count := range status.QueueStats {
		resp.QueueStats[string(st)] = int64(count)
	}
	return nil
}

func (s *service) Add(req AddRequest, resp *AddResponse) error {
	s.log().Debug("entry add requested",
		logging.Int("field_count", len(req.Fields)),
		logging.Int("attachment_count", len(req.Attachments)))
	attachments := make([]intake.Attachment, 0, len(req.Attachments))
	for _, attachment := range req.Attachments {
		attachments = append(attachments, intake.Attachment{
			FileName: attachment.FileName,
			MimeType: attachment.MimeType,
			Bytes:    attachment.Bytes,
		})
	}
	entry, err := s.daemon.Add(s.ctx, intake.Request{Fields: req.Fields, Attachments: attachments})
	if err != nil {
		return err
	}
	resp.Entry = api.FromEntry(entry)
	return nil
}

func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	statuses := make([]queue.Status, 0, len(req.Statuses))
	for _, raw := range req.Statuses {
		parsed, ok := queue.ParseStatus(raw)
		if !ok {
			continue
		}
		statuses = append(statuses, parsed)
	}
	entries, err := s.daemon.ListQueue(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Entries = make([]QueueEntry, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		resp.Entries = append(resp.Entries, api.FromEntry(entry))
	}
	return nil
}

func (s *service) QueueDescribe(req QueueDescribeRequest, resp *QueueDescribeResponse) error {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return errors.New("queue describe requires an entry id")
	}
	entry, err := s.daemon.GetEntry(s.ctx, id)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("queue entry %s not found", id)
	}
	resp.Entry = api.FromEntry(entry)
	return nil
}

func (s *service) QueueDelete(req QueueDeleteRequest, resp *QueueDeleteResponse) error {
	if len(req.IDs) == 0 {
		return errors.New("queue delete requires at least one id")
	}
	s.log().Debug("queue delete requested", logging.Int("entry_count", len(req.IDs)))
	var removed int64
	for _, id := range req.IDs {
		if err := s.daemon.Delete(s.ctx, id); err != nil {
			return err
		}
		removed++
	}
	resp.Removed = removed
	s.log().Info("queue entries deleted",
		logging.String(logging.FieldEventType, "queue_delete"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) QueueRetry(req QueueRetryRequest, resp *QueueRetryResponse) error {
	s.log().Debug("queue retry requested", logging.Int("entry_count", len(req.IDs)))
	updated, err := s.daemon.Retry(s.ctx, req.IDs...)
	if err != nil {
		return err
	}
	resp.Updated = updated
	s.log().Info("queue entries retried",
		logging.String(logging.FieldEventType, "queue_retry"),
		logging.Int64("updated_count", updated))
	return nil
}

func (s *service) Flush(_ FlushRequest, resp *FlushResponse) error {
	s.log().Debug("flush requested")
	s.daemon.Flush()
	resp.Requested = true
	return nil
}

func (s *service) QueueStats(_ QueueStatsRequest, resp *QueueStatsResponse) error {
	counts, err := s.daemon.QueueStats(s.ctx)
	if err != nil {
		return err
	}
	resp.Stats = api.StatsFromCounts(counts)
	return nil
}

func (s *service) QueueHealth(_ QueueHealthRequest, resp *QueueHealthResponse) error {
	summary, err := s.daemon.QueueHealth(s.ctx)
	if err != nil {
		return err
	}
	resp.Health = api.HealthFromSummary(summary)
	return nil
}

func (s *service) Sweep(_ SweepRequest, resp *SweepResponse) error {
	removed, err := s.daemon.SweepOrphanBlobs(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
