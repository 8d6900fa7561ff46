package main

import (
	"net"
	"net/url"
	"strings"
)

var defaultAllowedDomains = []string{
	"localhost",
	"127.0.0.1",
	"template.online",
	"www.template.online",
}

var allowedVideoHosts = []string{
	"youtube.com",
	"www.youtube.com",
	"youtu.be",
}

// domainPolicy decides which hosts may call the API and which source URLs
// are accepted for conversion.
type domainPolicy struct {
	hosts map[string]struct{}
}

func newDomainPolicy(allowed []string) *domainPolicy {
	hosts := make(map[string]struct{}, len(allowed))
	for _, h := range allowed {
		hosts[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	return &domainPolicy{hosts: hosts}
}

// AllowedOrigins expands the host allow-list into CORS origins over both
// schemes.
func (p *domainPolicy) AllowedOrigins() []string {
	origins := make([]string, 0, 2*len(p.hosts))
	for h := range p.hosts {
		origins = append(origins, "http://"+h, "https://"+h)
	}
	return origins
}

// AllowedHost reports whether the request host (with or without port) is on
// the allow-list.
func (p *domainPolicy) AllowedHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	_, ok := p.hosts[strings.ToLower(host)]
	return ok
}

// AllowedOrigin reports whether a CORS Origin header value is acceptable.
func (p *domainPolicy) AllowedOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return p.AllowedHost(u.Host)
}

// validVideoURL reports whether the raw URL points at a supported video
// host. This is the synchronous validation applied before a job is created.
func validVideoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range allowedVideoHosts {
		if host == allowed {
			return true
		}
	}
	return false
}
