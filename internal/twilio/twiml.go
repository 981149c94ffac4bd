package twilio

import (
	"encoding/xml"
	"net/url"

	"github.com/rotisserie/eris"
)

const (
	// GatherPath is the webhook Twilio posts speech results to.
	GatherPath = "/api/providers/twilio/gather"
	// VoicePath is the inbound call webhook.
	VoicePath = "/api/providers/twilio/voice"

	// NoInputText asks the caller to repeat after an empty gather.
	NoInputText = "Ich habe nichts verstanden. Wiederhole bitte kurz deine Antwort."

	// ContentType is the MIME type of TwiML responses.
	ContentType = "text/xml; charset=utf-8"

	language = "de-DE"
)

type say struct {
	Language string `xml:"language,attr"`
	Text     string `xml:",chardata"`
}

type gather struct {
	Input         string `xml:"input,attr"`
	SpeechTimeout string `xml:"speechTimeout,attr"`
	Method        string `xml:"method,attr"`
	Action        string `xml:"action,attr"`
	Say           say    `xml:"Say"`
}

type redirect struct {
	Method string `xml:"method,attr"`
	URL    string `xml:",chardata"`
}

type hangup struct{}

type response struct {
	XMLName  xml.Name  `xml:"Response"`
	Gather   *gather   `xml:"Gather,omitempty"`
	Say      *say      `xml:"Say,omitempty"`
	Redirect *redirect `xml:"Redirect,omitempty"`
	Hangup   *hangup   `xml:"Hangup,omitempty"`
}

// GatherAction is the gather webhook URL for callID.
func GatherAction(callID string) string {
	return GatherPath + "?callId=" + url.QueryEscape(callID)
}

// GatherTwiML speaks text and listens for the next answer. When the caller
// stays silent Twilio follows the redirect back to the gather webhook.
func GatherTwiML(text, callID string) ([]byte, error) {
	action := GatherAction(callID)
	return render(response{
		Gather: &gather{
			Input:         "speech dtmf",
			SpeechTimeout: "auto",
			Method:        "POST",
			Action:        action,
			Say:           say{Language: language, Text: text},
		},
		Redirect: &redirect{Method: "POST", URL: action},
	})
}

// CloseTwiML speaks text and hangs up.
func CloseTwiML(text string) ([]byte, error) {
	return render(response{
		Say:    &say{Language: language, Text: text},
		Hangup: &hangup{},
	})
}

func render(r response) ([]byte, error) {
	body, err := xml.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "twilio: render twiml")
	}
	return append([]byte(xml.Header), body...), nil
}
