package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected Version
		wantErr  bool
	}{
		{desc: "http 1.1", input: "HTTP/1.1", expected: Version11},
		{desc: "http 1.0", input: "HTTP/1.0", expected: Version10},
		{desc: "http 2.0 parses", input: "HTTP/2.0", expected: Version{2, 0}},
		{desc: "missing prefix", input: "1.1", wantErr: true},
		{desc: "lowercase prefix", input: "http/1.1", wantErr: true},
		{desc: "missing slash", input: "HTTP1.1", wantErr: true},
		{desc: "missing minor", input: "HTTP/1", wantErr: true},
		{desc: "two digit major", input: "HTTP/10.1", wantErr: true},
		{desc: "two dots", input: "HTTP/1.1.1", wantErr: true},
		{desc: "not digits", input: "HTTP/a.b", wantErr: true},
		{desc: "negative", input: "HTTP/1.-", wantErr: true},
		{desc: "empty", input: "", wantErr: true},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			ver, err := ParseVersion([]byte(tc.input))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, ver)
		})
	}
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "HTTP/1.1", Version11.String())
	assert.Equal(t, "HTTP/1.0", Version10.String())
	assert.True(t, Version10.IsHTTP1())
	assert.False(t, Version{2, 0}.IsHTTP1())
	assert.False(t, Version{0, 9}.IsHTTP1())
}

func TestParseField(t *testing.T) {
	testcases := []struct {
		desc     string
		input    []byte
		expected Field
		wantErr  bool
	}{
		{
			desc:     "headers with leading and trailing whitespace",
			input:    []byte("Content-Type:   text/html\t  "),
			expected: Field{"Content-Type", "text/html"},
		},
		{
			desc:     "field name is not a valid token",
			input:    []byte("content type: text/html"),
			expected: Field{"content type", "text/html"},
		},
		{
			desc:     "trailing whitespace on field name is kept",
			input:    []byte("Content-Type : text/html"),
			expected: Field{"Content-Type ", "text/html"},
		},
		{
			desc:     "colon inside value",
			input:    []byte("Location: http://example.com:8080/"),
			expected: Field{"Location", "http://example.com:8080/"},
		},
		{
			desc:     "empty value",
			input:    []byte("X-Empty:"),
			expected: Field{"X-Empty", ""},
		},
		{
			desc:    "no colon seperator",
			input:   []byte("content type text/html"),
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			field, err := ParseField(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, field)
		})
	}

}

func TestFieldToText(t *testing.T) {
	field := Field{"Host", "example.com"}
	expected := "Host: example.com"

	assert.Equal(t, expected, string(field.Text()))
}

func TestHeaders(t *testing.T) {
	var h Headers
	h.Add("Set-Cookie", "a=1")
	h.Add("content-type", "text/plain")
	h.Add("set-cookie", "b=2")

	value, ok := h.Get("Content-Type")
	assert.True(t, ok)
	assert.Equal(t, "text/plain", value)

	value, ok = h.Get("SET-COOKIE")
	assert.True(t, ok)
	assert.Equal(t, "a=1", value, "first field wins")

	_, ok = h.Get("X-Missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"a=1", "b=2"}, h.Values("Set-Cookie"))
	assert.Nil(t, h.Values("X-Missing"))

	clone := h.Clone()
	clone[0].Value = "changed"
	assert.Equal(t, "a=1", h[0].Value)
	assert.Nil(t, Headers(nil).Clone())
}
