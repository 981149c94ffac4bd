// Package twilio adapts Twilio voice webhooks: request signature checks and
// TwiML responses.
package twilio

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // Twilio signs webhooks with HMAC-SHA1.
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// SignatureHeader carries Twilio's request signature.
const SignatureHeader = "X-Twilio-Signature"

// ErrInvalidSignature is returned when a webhook signature does not match.
var ErrInvalidSignature = eris.New("twilio: invalid signature")

// ComputeSignature returns base64(HMAC-SHA1(token, url + sorted key/value
// pairs)).
func ComputeSignature(rawURL string, params map[string]string, authToken string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(rawURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidSignature reports whether provided matches the expected signature.
// An empty signature is never valid.
func ValidSignature(rawURL string, params map[string]string, authToken, provided string) bool {
	if provided == "" {
		return false
	}
	expected := ComputeSignature(rawURL, params, authToken)
	return hmac.Equal([]byte(expected), []byte(provided))
}

// VerifyRequest checks the signature of a form-encoded webhook. publicBaseURL
// replaces scheme and host, since Twilio signs the URL it called, not the one
// the server sees behind a proxy.
func VerifyRequest(r *http.Request, publicBaseURL, authToken string) error {
	if err := r.ParseForm(); err != nil {
		return eris.Wrap(err, "twilio: parse form")
	}
	params := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	signed, err := SignedURL(publicBaseURL, r.URL)
	if err != nil {
		return err
	}
	if !ValidSignature(signed, params, authToken, r.Header.Get(SignatureHeader)) {
		return ErrInvalidSignature
	}
	return nil
}

// SignedURL joins the public base URL with the request path and query.
func SignedURL(publicBaseURL string, u *url.URL) (string, error) {
	base, err := url.Parse(strings.TrimRight(publicBaseURL, "/"))
	if err != nil {
		return "", eris.Wrap(err, "twilio: parse public base url")
	}
	return base.String() + u.RequestURI(), nil
}
