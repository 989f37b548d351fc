// Package payload classifies decoded QR text into the content kinds the
// scanner knows how to present: links, Wi-Fi credentials and contacts.
package payload

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind is the detected content type of a decoded payload.
type Kind string

const (
	KindText  Kind = "text"
	KindURL   Kind = "url"
	KindWiFi  Kind = "wifi"
	KindVCard Kind = "vcard"
)

// Unknown is reported for fields that are required for display but missing.
const Unknown = "Unknown"

// WiFi holds the fields of a WIFI: network configuration payload.
type WiFi struct {
	SSID     string `json:"ssid"`
	Password string `json:"password,omitempty"`
	Security string `json:"security,omitempty"`
	Hidden   bool   `json:"hidden,omitempty"`
}

// Contact holds the fields of a vCard payload.
type Contact struct {
	Name  string `json:"name"`
	Tel   string `json:"tel,omitempty"`
	Email string `json:"email,omitempty"`
}

// Payload is a classified QR payload.
type Payload struct {
	Kind    Kind     `json:"kind"`
	Text    string   `json:"text"`
	URL     string   `json:"url,omitempty"`
	WiFi    *WiFi    `json:"wifi,omitempty"`
	Contact *Contact `json:"contact,omitempty"`
}

var (
	wifiSSID     = regexp.MustCompile(`S:([^;]+);`)
	wifiPassword = regexp.MustCompile(`P:([^;]+);`)
	wifiSecurity = regexp.MustCompile(`T:([^;]+);`)
	wifiHidden   = regexp.MustCompile(`H:([^;]+);`)

	vcardName  = regexp.MustCompile(`FN:([^\r\n]+)`)
	vcardTel   = regexp.MustCompile(`TEL[^:\r\n]*:([^\r\n]+)`)
	vcardEmail = regexp.MustCompile(`EMAIL[^:\r\n]*:([^\r\n]+)`)
)

// Classify normalizes text to NFC and detects its kind. The checks run in
// order: http prefix, WIFI: prefix, then an embedded BEGIN:VCARD marker.
func Classify(text string) Payload {
	text = norm.NFC.String(text)
	p := Payload{Kind: KindText, Text: text}

	switch {
	case strings.HasPrefix(text, "http"):
		p.Kind = KindURL
		p.URL = text
	case strings.HasPrefix(text, "WIFI:"):
		p.Kind = KindWiFi
		p.WiFi = ParseWiFi(text)
	case strings.Contains(text, "BEGIN:VCARD"):
		p.Kind = KindVCard
		p.Contact = ParseVCard(text)
	}
	return p
}

// ParseWiFi extracts network fields from a WIFI: payload. A missing SSID is
// reported as Unknown and a missing password as empty.
func ParseWiFi(text string) *WiFi {
	body := strings.TrimPrefix(text, "WIFI:")
	w := &WiFi{
		SSID:     firstGroup(wifiSSID, body),
		Password: firstGroup(wifiPassword, body),
		Security: firstGroup(wifiSecurity, body),
	}
	if w.SSID == "" {
		w.SSID = Unknown
	}
	if h := firstGroup(wifiHidden, body); strings.EqualFold(h, "true") {
		w.Hidden = true
	}
	return w
}

// ParseVCard extracts the display name, phone and email from a vCard.
func ParseVCard(text string) *Contact {
	c := &Contact{
		Name:  strings.TrimSpace(firstGroup(vcardName, text)),
		Tel:   strings.TrimSpace(firstGroup(vcardTel, text)),
		Email: strings.TrimSpace(firstGroup(vcardEmail, text)),
	}
	if c.Name == "" {
		c.Name = Unknown
	}
	return c
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
