package tools

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"sheet-agent/config"
	apperrors "sheet-agent/errors"

	"go.uber.org/zap"
)

// EOMToken terminates both requests and replies on the executor wire.
const EOMToken = "<|EOM|>"

// PythonExecutor runs code on a pool of stateful Python executors. Each
// session sticks to the executor that first served it so its df survives
// between calls.
type PythonExecutor struct {
	pool           *executorPool
	logger         *zap.Logger
	dialTimeout    time.Duration
	ioTimeout      time.Duration
	maxConnections int

	sessionMu   sync.RWMutex
	sessionAddr map[string]string
	// sessionInit is the df bootstrap replayed on an executor that takes
	// over a session.
	sessionInit map[string]string

	connPoolsMu sync.Mutex
	connPools   map[string]*connPool
}

// NewPythonExecutor builds the pool and checks that at least one executor
// answers a TCP dial.
func NewPythonExecutor(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*PythonExecutor, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	pool, err := newExecutorPool(cfg.PythonExecutorAddresses, cfg.PythonExecutorCooldown)
	if err != nil {
		return nil, err
	}
	e := &PythonExecutor{
		pool:           pool,
		logger:         logger,
		dialTimeout:    cfg.PythonExecutorDialTimeout,
		ioTimeout:      cfg.PythonExecutorIOTimeout,
		maxConnections: cfg.PythonExecutorMaxConnections,
		sessionAddr:    make(map[string]string),
		sessionInit:    make(map[string]string),
		connPools:      make(map[string]*connPool),
	}
	if err := e.ensureConnectivity(ctx); err != nil {
		return nil, err
	}
	logger.Info("Python executor pool initialized", zap.Strings("addresses", pool.Addresses()))
	return e, nil
}

func (e *PythonExecutor) connPoolFor(address string) *connPool {
	e.connPoolsMu.Lock()
	defer e.connPoolsMu.Unlock()
	cp := e.connPools[address]
	if cp == nil {
		cp = newConnPool(e.maxConnections, func(ctx context.Context) (net.Conn, error) {
			d := &net.Dialer{Timeout: e.dialTimeout}
			return d.DialContext(ctx, "tcp", address)
		})
		e.connPools[address] = cp
	}
	return cp
}

func (e *PythonExecutor) ensureConnectivity(ctx context.Context) error {
	var lastErr error
	for _, addr := range e.pool.Addresses() {
		cp := e.connPoolFor(addr)
		conn, err := cp.Get(ctx)
		if err != nil {
			e.pool.MarkFailure(addr)
			lastErr = err
			e.logger.Warn("Initial executor health check failed", zap.String("address", addr), zap.Error(err))
			continue
		}
		cp.Put(conn)
		e.pool.MarkSuccess(addr)
		return nil
	}
	return apperrors.Join(apperrors.ErrServiceUnavailable, fmt.Errorf("unable to reach any python executor: %w", lastErr))
}

// exchange writes one framed request and reads until the EOM token.
func (e *PythonExecutor) exchange(ctx context.Context, conn net.Conn, sessionID, code string) (string, error) {
	deadline := time.Now().Add(e.ioTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	if _, err := io.WriteString(conn, sessionID+"|"+code+EOMToken); err != nil {
		return "", fmt.Errorf("send code: %w", err)
	}

	reader := bufio.NewReader(conn)
	var b strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		b.Write(buf[:n])
		if out, done := strings.CutSuffix(strings.TrimRight(b.String(), " \r\n"), EOMToken); done {
			return strings.TrimSpace(out), nil
		}
		if err != nil {
			return "", fmt.Errorf("read result: %w", err)
		}
	}
}

// Run executes code for sessionID. The session's bound executor is tried
// first; on failure the pool is walked round robin and the session's df
// bootstrap is replayed on the executor that takes over.
func (e *PythonExecutor) Run(ctx context.Context, sessionID, code string) (string, error) {
	tried := make(map[string]struct{})

	e.sessionMu.RLock()
	bound, ok := e.sessionAddr[sessionID]
	bootstrap, hasBootstrap := e.sessionInit[sessionID]
	e.sessionMu.RUnlock()
	if ok {
		out, err := e.callExecutor(ctx, bound, sessionID, code)
		if err == nil {
			return out, nil
		}
		tried[bound] = struct{}{}
		e.unbind(sessionID)
	}

	lastErr := errNoHealthyExecutors
	for range e.pool.Addresses() {
		addr, err := e.pool.Next()
		if err != nil {
			break
		}
		if _, seen := tried[addr]; seen {
			continue
		}
		tried[addr] = struct{}{}

		if hasBootstrap && bootstrap != code {
			if _, err := e.callExecutor(ctx, addr, sessionID, bootstrap); err != nil {
				lastErr = err
				continue
			}
			e.logger.Info("Replayed session bootstrap on new executor",
				zap.String("address", addr),
				zap.String("session_id", sessionID))
		}

		out, err := e.callExecutor(ctx, addr, sessionID, code)
		if err == nil {
			e.sessionMu.Lock()
			e.sessionAddr[sessionID] = addr
			e.sessionMu.Unlock()
			return out, nil
		}
		lastErr = err
	}
	return "", apperrors.Join(apperrors.ErrPythonExecution, lastErr)
}

func (e *PythonExecutor) callExecutor(ctx context.Context, addr, sessionID, code string) (string, error) {
	cp := e.connPoolFor(addr)
	conn, err := cp.Get(ctx)
	if err != nil {
		e.pool.MarkFailure(addr)
		e.logger.Warn("Failed to connect to python executor", zap.String("address", addr), zap.Error(err))
		return "", fmt.Errorf("dial python executor %s: %w", addr, err)
	}

	out, err := e.exchange(ctx, conn, sessionID, code)
	if err != nil {
		cp.Discard(conn)
		e.pool.MarkFailure(addr)
		e.logger.Warn("Python executor call failed", zap.String("address", addr), zap.Error(err))
		return "", fmt.Errorf("executor %s: %w", addr, err)
	}

	cp.Put(conn)
	e.pool.MarkSuccess(addr)
	e.logger.Debug("Python code executed", zap.String("address", addr), zap.String("session_id", sessionID))
	return out, nil
}

// InitializeSession loads the CSV at csvPath into df for the session. The
// path must be readable by the executor.
func (e *PythonExecutor) InitializeSession(ctx context.Context, sessionID, csvPath string) (string, error) {
	code := LoadDataFrameCode(csvPath)
	e.sessionMu.Lock()
	e.sessionInit[sessionID] = code
	e.sessionMu.Unlock()
	return e.Run(ctx, sessionID, code)
}

// LoadDataFrameCode returns the bootstrap snippet that binds df.
func LoadDataFrameCode(csvPath string) string {
	return fmt.Sprintf(`import pandas as pd
import numpy as np
import warnings
warnings.filterwarnings('ignore')
pd.set_option('display.max_columns', None)
pd.set_option('display.width', 0)
df = pd.read_csv(%s)
print(f"df loaded: {df.shape[0]} rows x {df.shape[1]} columns")`, strconv.Quote(csvPath))
}

func (e *PythonExecutor) unbind(sessionID string) {
	e.sessionMu.Lock()
	delete(e.sessionAddr, sessionID)
	e.sessionMu.Unlock()
}

// CleanupSession drops the executor binding for sessionID.
func (e *PythonExecutor) CleanupSession(sessionID string) {
	e.unbind(sessionID)
	e.sessionMu.Lock()
	delete(e.sessionInit, sessionID)
	e.sessionMu.Unlock()
	e.logger.Info("Python session cleaned up", zap.String("session_id", sessionID))
}

// Close closes idle connections on every executor.
func (e *PythonExecutor) Close() {
	e.connPoolsMu.Lock()
	defer e.connPoolsMu.Unlock()
	for addr, cp := range e.connPools {
		cp.Close()
		delete(e.connPools, addr)
	}
}

// ExtractCode returns the body of the first ```python (or ```py) fence, or
// "" when there is none.
func ExtractCode(text string) string {
	for _, fence := range []string{"```python", "```py"} {
		start := strings.Index(text, fence)
		if start == -1 {
			continue
		}
		body := text[start+len(fence):]
		nl := strings.IndexByte(body, '\n')
		if nl == -1 || strings.TrimSpace(body[:nl]) != "" {
			continue
		}
		body = body[nl+1:]
		if end := strings.Index(body, "```"); end != -1 {
			return strings.TrimSpace(body[:end])
		}
		// Unclosed fence: the model was cut off mid-block.
		return strings.TrimSpace(body)
	}
	return ""
}

// SanitizeLogOutput truncates s and hides outputs that look like secrets.
func SanitizeLogOutput(s string, maxLen int) string {
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	lower := strings.ToLower(s)
	for _, pattern := range []string{"password", "passwd", "token", "api_key", "apikey", "secret", "credentials"} {
		if strings.Contains(lower, pattern) {
			return "[Output contains potentially sensitive data - not logged]"
		}
	}
	return s
}
