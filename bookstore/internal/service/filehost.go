package service

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/Astemirdum/bookstore-service/pkg/circuit_breaker"
)

// DefaultFileHosts are the hosts whose links the check endpoint may fetch.
var DefaultFileHosts = []string{
	"drive.google.com",
	"docs.google.com",
	"googleusercontent.com",
	"dropbox.com",
	"dropboxusercontent.com",
}

const maxRedirects = 5

var (
	errRefusedAddress  = errors.New("address is not publicly routable")
	errRefusedRedirect = errors.New("redirect leaves the file hosts")
)

func normalizeHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.Trim(strings.TrimSpace(h), "."))
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}

// fileHost reports the configured entry host belongs to.
func (s *Service) fileHost(host string) (string, bool) {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return "", false
	}
	for _, h := range s.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return h, true
		}
	}
	return "", false
}

// checkRedirect follows a redirect only while it stays on the file hosts.
func (s *Service) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.Errorf("stopped after %d redirects", maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return errRefusedRedirect
	}
	if _, ok := s.fileHost(req.URL.Hostname()); !ok {
		return errRefusedRedirect
	}
	return nil
}

// newFileHostClient dials public addresses only, so a file host name that
// resolves into a private range is never reached.
func newFileHostClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout: 5 * time.Second,
		Control: refusePrivateAddress,
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = nil
	tr.DialContext = dialer.DialContext
	return &http.Client{Timeout: timeout, Transport: tr}
}

func refusePrivateAddress(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsGlobalUnicast() || ip.IsPrivate() {
		return errRefusedAddress
	}
	return nil
}

// hostBreakers keeps one breaker per file host so a dead host does not
// hide the others.
type hostBreakers struct {
	mu     sync.Mutex
	newCB  func() circuit_breaker.CircuitBreaker
	byHost map[string]circuit_breaker.CircuitBreaker
}

func newHostBreakers(newCB func() circuit_breaker.CircuitBreaker) *hostBreakers {
	return &hostBreakers{
		newCB:  newCB,
		byHost: make(map[string]circuit_breaker.CircuitBreaker),
	}
}

func (b *hostBreakers) get(host string) circuit_breaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, ok := b.byHost[host]
	if !ok {
		cb = b.newCB()
		b.byHost[host] = cb
	}
	return cb
}
