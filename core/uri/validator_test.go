package uri

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Policy(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		uri     string
		base    string
		want    string
		wantErr bool
	}{
		{name: "absolute https", uri: "https://example.com/a", want: "https://example.com/a"},
		{name: "absolute http", uri: "http://example.com/a", want: "http://example.com/a"},
		{name: "fragment", uri: "#section-2", want: "#section-2"},
		{name: "dot relative", uri: "./images/a.png", want: "./images/a.png"},
		{name: "empty", uri: "", wantErr: true},
		{name: "bare word", uri: "not-a-uri", wantErr: true},
		{name: "protocol relative", uri: "//cdn.example.com/a.js", wantErr: true},
		{name: "javascript", uri: "javascript:alert(1)", wantErr: true},
		{name: "vbscript", uri: "vbscript:msgbox", wantErr: true},
		{name: "data", uri: "data:text/html;base64,PGI+", wantErr: true},
		{name: "file", uri: "file:///etc/passwd", wantErr: true},
		{name: "ftp", uri: "ftp://example.com/f", wantErr: true},
		{name: "mailto", uri: "mailto:a@b.c", wantErr: true},
		{name: "mixed case scheme", uri: "JaVaScRiPt:alert(1)", wantErr: true},
		{name: "traversal", uri: "https://example.com/../../etc", wantErr: true},
		{name: "parent relative rejected by traversal check", uri: "../up/one", wantErr: true},
		{name: "backslash", uri: `https://example.com/a\b`, wantErr: true},
		{
			name: "relative resolved against base",
			uri:  "./a.png",
			base: "https://example.com/posts/1",
			want: "https://example.com/posts/a.png",
		},
		{
			name: "absolute kept under base",
			uri:  "https://other.com/x",
			base: "https://example.com/",
			want: "https://other.com/x",
		},
		{name: "localhost host", uri: "http://localhost/admin", base: "https://example.com/", wantErr: true},
		{name: "localhost subdomain", uri: "http://evil.localhost/x", base: "https://example.com/", wantErr: true},
		{name: "loopback ip", uri: "http://127.0.0.1/x", base: "https://example.com/", wantErr: true},
		{name: "unspecified ip", uri: "http://0.0.0.0/x", base: "https://example.com/", wantErr: true},
		{name: "private 10", uri: "http://10.1.2.3/x", base: "https://example.com/", wantErr: true},
		{name: "private 172", uri: "http://172.16.0.9/x", base: "https://example.com/", wantErr: true},
		{name: "private 192", uri: "http://192.168.1.1/x", base: "https://example.com/", wantErr: true},
		{name: "ipv6 loopback", uri: "http://[::1]/x", base: "https://example.com/", wantErr: true},
		{
			name: "public host containing private-looking label",
			uri:  "https://127-0-0-1.example.com/x",
			base: "https://example.com/",
			want: "https://127-0-0-1.example.com/x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Validate(tt.uri, tt.base)
			if tt.wantErr {
				require.Error(t, err)
				var secErr *SecurityError
				require.ErrorAs(t, err, &secErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_StripsControlCharacters(t *testing.T) {
	v := New()

	// Control characters must not let a blocked scheme through.
	_, err := v.Validate("java\tscript:alert(1)", "")
	require.Error(t, err)

	got, err := v.Validate("https://example.com/a\x00b", "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/ab", got)
}

func TestValidate_BlockedSchemeNeverReturnedRaw(t *testing.T) {
	v := New()
	for _, uri := range []string{
		"javascript:alert(1)",
		"JAVASCRIPT:alert(1)",
		"data:image/png;base64,AAAA",
		"\x01javascript:alert(1)",
	} {
		got, err := v.Validate(uri, "https://example.com/")
		if err == nil {
			assert.False(t, strings.HasPrefix(strings.ToLower(got), "javascript:"))
			assert.False(t, strings.HasPrefix(strings.ToLower(got), "data:"))
		}
	}
}

func TestValidate_TruncatesLongURIs(t *testing.T) {
	v := New()
	long := "https://example.com/" + strings.Repeat("a", 3000)
	got, err := v.Validate(long, "")
	require.NoError(t, err)
	assert.Len(t, got, MaxURILength)
}

func TestValidate_TruncatesOnRuneBoundary(t *testing.T) {
	v := New()
	long := "https://example.com/" + strings.Repeat("é", MaxURILength)
	got, err := v.Validate(long, "")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(got), "truncation must not split a rune")
	assert.Len(t, []rune(got), MaxURILength)
}

func TestValidate_UnparseableBasePassesThrough(t *testing.T) {
	v := New()
	got, err := v.Validate("https://example.com/a", "http://exa mple.com/%zz")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", got)
}
