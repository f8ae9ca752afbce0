package api

import (
	"net"
	"net/http"

	"golang.org/x/time/rate"
)

// allowSolve rate-limits solve submissions, the one expensive endpoint. Each
// client IP gets a token bucket sized from config; the bucket map is lazily
// built so zero-value Servers work.
func (s *Server) allowSolve(r *http.Request) bool {
	perMin := s.Cfg.RateLimit.SolvesPerMinute
	if perMin <= 0 {
		return true
	}
	burst := s.Cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 1
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	s.limMu.Lock()
	defer s.limMu.Unlock()
	if s.limiters == nil {
		s.limiters = map[string]*rate.Limiter{}
	}
	lim, ok := s.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(perMin)/60.0), burst)
		s.limiters[host] = lim
	}
	return lim.Allow()
}
