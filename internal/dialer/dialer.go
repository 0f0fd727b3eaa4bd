// Package dialer 为网关连接提供多 IP 竞速拨号：网关域名解析出多个地址时，
// 按间隔依次发起连接，取最先成功的一个。
package dialer

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"
)

type (
	DialOptions struct {
		Timeout   time.Duration
		KeepAlive time.Duration
	}

	// Dialer 先解析域名再对所有地址竞速拨号，IP 字面量直接拨号。
	Dialer struct {
		Options  DialOptions
		Resolver *net.Resolver
	}

	eitherConnOrError struct {
		conn net.Conn
		err  error
	}

	dialerErrs struct {
		errs []error
	}
)

const (
	DefaultDialTimeout = 5 * time.Second
	DefaultKeepAlive   = 30 * time.Second
)

// NewTransport 返回使用 Dialer 拨号的 http.Transport，其余参数与 http.DefaultTransport 一致。
func NewTransport(options DialOptions) *http.Transport {
	if options.Timeout <= 0 {
		options.Timeout = DefaultDialTimeout
	}
	if options.KeepAlive == 0 {
		options.KeepAlive = DefaultKeepAlive
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&Dialer{Options: options}).DialContext
	return transport
}

// DialContext 实现 http.Transport.DialContext。
func (d *Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	if ip := net.ParseIP(host); ip != nil {
		return dialContextSync(ctx, network, ip, port, d.Options)
	}

	resolver := d.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return DialContext(ctx, network, ips, port, d.Options)
}

// DialContext 每隔 Timeout/len(ips) 对下一个地址发起拨号，返回最先建立的连接，
// 其余连接会被关闭。
func DialContext(ctx context.Context, network string, ips []net.IP, port string, dialOptions DialOptions) (net.Conn, error) {
	if len(ips) == 0 {
		return nil, errors.New("no ip could be dialed")
	}

	var wg sync.WaitGroup
	resultsChan := make(chan eitherConnOrError, len(ips))
	cancels := make([]context.CancelFunc, 0, len(ips))
	err := &dialerErrs{errs: make([]error, 0, len(ips))}
	interval := dialOptions.Timeout / time.Duration(len(ips))
	if interval <= 0 {
		interval = time.Millisecond
	}

	var winner net.Conn
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
		wg.Wait()
		close(resultsChan)
		for result := range resultsChan {
			if result.conn != nil && result.conn != winner {
				result.conn.Close()
			}
		}
	}()

	dial := func(timeout time.Duration) {
		ip := ips[0]
		ips = ips[1:]
		newCtx, newCancel := context.WithCancel(ctx)
		cancels = append(cancels, newCancel)
		wg.Add(1)
		dialContextAsync(newCtx, &wg, network, ip, port, DialOptions{Timeout: timeout, KeepAlive: dialOptions.KeepAlive}, resultsChan)
	}
	dial(dialOptions.Timeout)
	pending := 1

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			if len(ips) > 0 {
				dial(dialOptions.Timeout - interval*time.Duration(len(cancels)))
				pending++
			} else if pending == 0 {
				return nil, err
			}
		case connOrErr := <-resultsChan:
			pending--
			if connOrErr.err != nil {
				err.errs = append(err.errs, connOrErr.err)
				if pending == 0 && len(ips) == 0 {
					return nil, err
				}
			} else if connOrErr.conn != nil {
				winner = connOrErr.conn
				return winner, nil
			}
		}
	}
}

func dialContextSync(ctx context.Context, network string, ip net.IP, port string, dialOptions DialOptions) (net.Conn, error) {
	dialer := net.Dialer{Timeout: dialOptions.Timeout, KeepAlive: dialOptions.KeepAlive}
	newAddr := ip.String()
	if port != "" {
		newAddr = net.JoinHostPort(newAddr, port)
	}
	return dialer.DialContext(ctx, network, newAddr)
}

func dialContextAsync(ctx context.Context, wg *sync.WaitGroup, network string, ip net.IP, port string, dialOptions DialOptions, c chan<- eitherConnOrError) {
	go func() {
		defer wg.Done()
		conn, err := dialContextSync(ctx, network, ip, port, dialOptions)
		if err != nil {
			c <- eitherConnOrError{err: err}
		} else {
			c <- eitherConnOrError{conn: conn}
		}
	}()
}

func (e *dialerErrs) Error() string {
	if len(e.errs) > 0 {
		return e.errs[0].Error()
	}
	return context.DeadlineExceeded.Error()
}

func (e *dialerErrs) Unwrap() error {
	if len(e.errs) > 0 {
		return e.errs[0]
	}
	return context.DeadlineExceeded
}

func (e *dialerErrs) Timeout() bool {
	if len(e.errs) > 0 {
		if te, ok := e.errs[0].(interface{ Timeout() bool }); ok {
			return te.Timeout()
		}
		return false
	}
	return true
}
