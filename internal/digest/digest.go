// package digest implements HTTP Digest authentication (RFC 2617) for the
// playlist API's mutating operations.
//
// The scheme hashes with MD5 for wire compatibility with the legacy DJ
// clients that post plays; that is a constraint of the scheme, not a
// recommendation. Issued nonces are not tracked, so a correctly hashed
// response verifies regardless of nonce freshness or reuse count. That
// matches the deployed behavior the clients depend on and is a known
// weakness: there is no replay protection.
package digest

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/chirpradio/playlist-api/internal/shared"
)

// Credentials is the parsed field set from a Digest Authorization header.
//
// All fields except Realm must be present for the set to be valid.
type Credentials struct {
	Username string
	Realm    string
	Nonce    string
	NC       string
	CNonce   string
	QOP      string
	URI      string
	Response string
}

// credentialPattern matches one key=value pair where the value is either
// quoted (quotes stripped) or a bare token delimited by whitespace/comma.
// Keys are case-sensitive exact matches, anchored at the start of the header
// or a delimiter so an unknown key sharing a suffix with a known one (say
// x_nc) never counts as that field; unknown keys are ignored.
var credentialPattern = regexp.MustCompile(
	`(?:^|[\s,])(username|realm|nonce|nc|cnonce|qop|uri|response)=(?:"([^"]*)"|'([^']*)'|([^\s,]+))`)

// ParseCredentials extracts the digest credential set from a raw
// Authorization header value. Order of appearance is irrelevant and extra
// keys do not fail the parse, but all seven required fields (username,
// nonce, nc, cnonce, qop, uri, response) must be found or the result is
// [shared.ErrMalformedCredentials].
func ParseCredentials(header string) (*Credentials, error) {
	header = strings.TrimPrefix(strings.TrimSpace(header), "Digest ")

	fields := map[string]string{}
	for _, m := range credentialPattern.FindAllStringSubmatch(header, -1) {
		value := m[2]
		if value == "" && m[3] != "" {
			value = m[3]
		}
		if value == "" && m[4] != "" {
			value = m[4]
		}
		fields[m[1]] = value
	}

	for _, required := range []string{"username", "nonce", "nc", "cnonce", "qop", "uri", "response"} {
		if _, ok := fields[required]; !ok {
			return nil, fmt.Errorf("%w: missing %s", shared.ErrMalformedCredentials, required)
		}
	}

	return &Credentials{
		Username: fields["username"],
		Realm:    fields["realm"],
		Nonce:    fields["nonce"],
		NC:       fields["nc"],
		CNonce:   fields["cnonce"],
		QOP:      fields["qop"],
		URI:      fields["uri"],
		Response: fields["response"],
	}, nil
}

// Challenge carries the WWW-Authenticate parameters for a 401 response.
type Challenge struct {
	Realm  string
	Nonce  string
	Opaque string
}

// Header renders the challenge as a WWW-Authenticate header value.
func (c Challenge) Header() string {
	return fmt.Sprintf(`Digest realm="%s", qop="auth", nonce="%s", opaque="%s"`, c.Realm, c.Nonce, c.Opaque)
}

// ChallengeError signals that a request carried no credentials and must be
// retried with a response to the enclosed challenge.
type ChallengeError struct {
	Challenge Challenge
}

func (e *ChallengeError) Error() string {
	return "authentication required"
}

// Authenticator validates digest credentials against a configured realm and
// a username→secret table, both injected at construction.
type Authenticator struct {
	realm string
	users map[string]string
}

// NewAuthenticator creates an Authenticator for the given realm and user table.
func NewAuthenticator(realm string, users map[string]string) *Authenticator {
	return &Authenticator{realm: realm, users: users}
}

// NewChallenge builds a fresh challenge: an unpredictable per-call nonce and
// an opaque value that is a stable fingerprint of the realm string.
func (a *Authenticator) NewChallenge() Challenge {
	return Challenge{
		Realm:  a.realm,
		Nonce:  shared.GenerateNonce(),
		Opaque: hash(a.realm),
	}
}

// Authenticate validates the Authorization header value for a request made
// with the given HTTP method.
//
// An absent or empty header yields a [ChallengeError] carrying a fresh
// challenge. A header that does not parse yields
// [shared.ErrMalformedCredentials]; an unknown username or a response that
// does not match the expected digest yields [shared.ErrInvalidCredentials].
func (a *Authenticator) Authenticate(header, method string) error {
	if header == "" {
		return &ChallengeError{Challenge: a.NewChallenge()}
	}

	creds, err := ParseCredentials(header)
	if err != nil {
		return err
	}

	secret, ok := a.users[creds.Username]
	if !ok {
		return fmt.Errorf("%w: unknown user", shared.ErrInvalidCredentials)
	}

	expected := a.expectedResponse(creds, method, secret)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(creds.Response)) != 1 {
		return fmt.Errorf("%w: response mismatch", shared.ErrInvalidCredentials)
	}

	return nil
}

// expectedResponse computes the RFC 2617 qop=auth response digest:
// MD5(A1 : nonce : nc : cnonce : qop : A2) with A1 = MD5(user:realm:secret)
// and A2 = MD5(method:uri).
func (a *Authenticator) expectedResponse(c *Credentials, method, secret string) string {
	a1 := hash(c.Username + ":" + a.realm + ":" + secret)
	a2 := hash(method + ":" + c.URI)
	return hash(strings.Join([]string{a1, c.Nonce, c.NC, c.CNonce, c.QOP, a2}, ":"))
}

// hash returns the lowercase hex MD5 digest of s.
func hash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
