package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Kind
	}{
		{"https url", "https://example.com", KindURL},
		{"http url", "http://example.com/x?y=1", KindURL},
		{"http prefix only", "httpfoo", KindURL},
		{"wifi", "WIFI:S:home;T:WPA;P:pw;;", KindWiFi},
		{"vcard", "BEGIN:VCARD\nVERSION:3.0\nFN:Ann\nEND:VCARD", KindVCard},
		{"embedded vcard", "note\nBEGIN:VCARD\nFN:Ann\nEND:VCARD", KindVCard},
		{"plain", "hello world", KindText},
		{"lowercase wifi is text", "wifi:S:x;;", KindText},
		{"empty", "", KindText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Classify(tt.text)
			assert.Equal(t, tt.want, p.Kind)
			assert.Equal(t, tt.text, p.Text)
		})
	}
}

func TestClassify_URLWinsOverVCard(t *testing.T) {
	p := Classify("https://x.test/BEGIN:VCARD")
	assert.Equal(t, KindURL, p.Kind)
	assert.Nil(t, p.Contact)
}

func TestClassify_NormalizesToNFC(t *testing.T) {
	// "e" followed by a combining acute accent.
	p := Classify("cafe\u0301")
	assert.Equal(t, "caf\u00e9", p.Text)
}

func TestParseWiFi(t *testing.T) {
	w := ParseWiFi("WIFI:S:home net;T:WPA;P:s3cret;H:true;;")
	assert.Equal(t, &WiFi{SSID: "home net", Password: "s3cret", Security: "WPA", Hidden: true}, w)

	open := ParseWiFi("WIFI:T:nopass;;")
	assert.Equal(t, Unknown, open.SSID)
	assert.Empty(t, open.Password)
	assert.False(t, open.Hidden)
}

func TestParseVCard(t *testing.T) {
	c := ParseVCard("BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Ann Example\r\nTEL;TYPE=CELL:+1 555\r\nEMAIL:ann@example.com\r\nEND:VCARD")
	assert.Equal(t, "Ann Example", c.Name)
	assert.Equal(t, "+1 555", c.Tel)
	assert.Equal(t, "ann@example.com", c.Email)

	anon := ParseVCard("BEGIN:VCARD\nEND:VCARD")
	require.NotNil(t, anon)
	assert.Equal(t, Unknown, anon.Name)
	assert.Empty(t, anon.Tel)
}
