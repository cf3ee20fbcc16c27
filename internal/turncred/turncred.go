// Package turncred issues ephemeral TURN credentials per
// draft-uberti-behave-turn-rest: the username is an expiry timestamp and
// the credential an HMAC over it keyed by the server's shared secret, so
// the TURN server needs no per-user state.
package turncred

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"strconv"
	"time"
)

// DefaultExpiry is the credential lifetime in seconds when a server entry
// does not configure one.
const DefaultExpiry = 86400

// Server is one configured TURN server.
type Server struct {
	Secret string
	URLs   []string
	Expiry int64
}

// Credential is what a client needs to authenticate against one server.
type Credential struct {
	Username   string   `json:"username"`
	Credential string   `json:"credential"`
	URLs       []string `json:"urls"`
}

// Issuer derives fresh credential sets for connecting clients.
type Issuer struct {
	servers []Server
	origins []string
	now     func() time.Time
}

// NewIssuer builds an issuer. A non-empty origins list restricts issuance
// to clients connecting from one of those origins. now defaults to
// time.Now and exists for deterministic tests.
func NewIssuer(servers []Server, origins []string, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{servers: servers, origins: origins, now: now}
}

// Issue returns one credential per configured server, or nil when the
// caller's origin is not on a configured allowlist. The whole issuance is
// skipped in that case, never individual servers.
func (i *Issuer) Issue(origin string) []Credential {
	if len(i.origins) > 0 && !allowedOrigin(i.origins, origin) {
		return nil
	}
	creds := make([]Credential, 0, len(i.servers))
	for _, srv := range i.servers {
		expiry := srv.Expiry
		if expiry <= 0 {
			expiry = DefaultExpiry
		}
		username := strconv.FormatInt(i.now().Unix()+expiry, 10)
		mac := hmac.New(sha1.New, []byte(srv.Secret))
		mac.Write([]byte(username))
		creds = append(creds, Credential{
			Username:   username,
			Credential: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
			URLs:       srv.URLs,
		})
	}
	return creds
}

func allowedOrigin(origins []string, origin string) bool {
	for _, o := range origins {
		if o == origin {
			return true
		}
	}
	return false
}
