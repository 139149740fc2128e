package tools

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"
)

var (
	errNoExecutors        = errors.New("no python executors configured")
	errNoHealthyExecutors = errors.New("no healthy python executors available")
)

type executorNode struct {
	address    string
	retryAfter time.Time
}

// executorPool rotates over executor addresses, skipping nodes that failed
// within the cooldown window.
type executorPool struct {
	mu       sync.Mutex
	nodes    []*executorNode
	next     int
	cooldown time.Duration
}

func newExecutorPool(addresses []string, cooldown time.Duration) (*executorPool, error) {
	seen := make(map[string]struct{}, len(addresses))
	nodes := make([]*executorNode, 0, len(addresses))
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		nodes = append(nodes, &executorNode{address: addr})
	}
	if len(nodes) == 0 {
		return nil, errNoExecutors
	}
	return &executorPool{nodes: nodes, cooldown: cooldown}, nil
}

func (p *executorPool) Next() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for i := 0; i < len(p.nodes); i++ {
		node := p.nodes[p.next]
		p.next = (p.next + 1) % len(p.nodes)
		if !now.Before(node.retryAfter) {
			return node.address, nil
		}
	}
	return "", errNoHealthyExecutors
}

func (p *executorPool) mark(address string, retryAfter time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, node := range p.nodes {
		if node.address == address {
			node.retryAfter = retryAfter
			return
		}
	}
}

func (p *executorPool) MarkFailure(address string) { p.mark(address, time.Now().Add(p.cooldown)) }

func (p *executorPool) MarkSuccess(address string) { p.mark(address, time.Time{}) }

func (p *executorPool) Addresses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	addrs := make([]string, len(p.nodes))
	for i, node := range p.nodes {
		addrs[i] = node.address
	}
	return addrs
}

// connPool keeps up to maxSize connections to one executor. sem counts open
// connections, idle holds the ones ready for reuse.
type connPool struct {
	idle chan net.Conn
	sem  chan struct{}
	dial func(context.Context) (net.Conn, error)
}

func newConnPool(maxSize int, dial func(context.Context) (net.Conn, error)) *connPool {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &connPool{
		idle: make(chan net.Conn, maxSize),
		sem:  make(chan struct{}, maxSize),
		dial: dial,
	}
}

func (p *connPool) Get(ctx context.Context) (net.Conn, error) {
	select {
	case conn := <-p.idle:
		return conn, nil
	default:
	}

	select {
	case conn := <-p.idle:
		return conn, nil
	case p.sem <- struct{}{}:
		conn, err := p.dial(ctx)
		if err != nil {
			p.release()
			return nil, err
		}
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *connPool) Put(conn net.Conn) {
	select {
	case p.idle <- conn:
	default:
		p.Discard(conn)
	}
}

// Discard closes a broken connection and frees its slot.
func (p *connPool) Discard(conn net.Conn) {
	_ = conn.Close()
	p.release()
}

func (p *connPool) release() {
	select {
	case <-p.sem:
	default:
	}
}

func (p *connPool) Close() {
	for {
		select {
		case conn := <-p.idle:
			p.Discard(conn)
		default:
			return
		}
	}
}
