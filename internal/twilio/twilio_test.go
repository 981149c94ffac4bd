package twilio

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignature_RoundTrip(t *testing.T) {
	t.Parallel()

	u := "https://example.com/api/providers/twilio/gather?callId=abc"
	params := map[string]string{"CallSid": "CA123", "SpeechResult": "Hallo"}
	sig := ComputeSignature(u, params, "secret-token")

	assert.True(t, ValidSignature(u, params, "secret-token", sig))
	assert.False(t, ValidSignature(u, params, "other-token", sig))
	assert.False(t, ValidSignature(u, params, "secret-token", ""))
	assert.False(t, ValidSignature("https://example.com/api/providers/twilio/voice",
		map[string]string{"CallSid": "CA999"}, "secret-token", "invalid-signature"))
}

func TestComputeSignature_KeyOrder(t *testing.T) {
	t.Parallel()

	a := ComputeSignature("https://x", map[string]string{"B": "2", "A": "1"}, "t")
	b := ComputeSignature("https://x", map[string]string{"A": "1", "B": "2"}, "t")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, ComputeSignature("https://x", map[string]string{"A": "2", "B": "1"}, "t"))
}

func TestVerifyRequest(t *testing.T) {
	t.Parallel()

	form := url.Values{"CallSid": {"CA1"}, "SpeechResult": {"Budget 2000"}}
	newReq := func(sig string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/providers/twilio/gather?callId=CA1", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if sig != "" {
			r.Header.Set(SignatureHeader, sig)
		}
		return r
	}

	sig := ComputeSignature("https://voice.example.com/api/providers/twilio/gather?callId=CA1",
		map[string]string{"CallSid": "CA1", "SpeechResult": "Budget 2000"}, "tok")

	require.NoError(t, VerifyRequest(newReq(sig), "https://voice.example.com/", "tok"))
	assert.ErrorIs(t, VerifyRequest(newReq(""), "https://voice.example.com", "tok"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyRequest(newReq(sig), "https://other.example.com", "tok"), ErrInvalidSignature)
}

func TestGatherTwiML(t *testing.T) {
	t.Parallel()

	out, err := GatherTwiML(`Budget <5k> & "Team"?`, "CA 1/2")
	require.NoError(t, err)
	s := string(out)

	assert.True(t, strings.HasPrefix(s, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, s, "<Response>")
	assert.Contains(t, s, "<Gather ")
	assert.Contains(t, s, `action="/api/providers/twilio/gather?callId=CA+1%2F2"`)
	assert.Contains(t, s, "Budget &lt;5k&gt; &amp; &#34;Team&#34;?")
	assert.Contains(t, s, `<Redirect method="POST">/api/providers/twilio/gather?callId=CA+1%2F2</Redirect>`)
	assert.NotContains(t, s, "Hangup")
}

func TestCloseTwiML(t *testing.T) {
	t.Parallel()

	out, err := CloseTwiML("Danke & tschuess")
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `<Say language="de-DE">Danke &amp; tschuess</Say>`)
	assert.Contains(t, s, "<Hangup></Hangup>")
	assert.NotContains(t, s, "Gather")
}
