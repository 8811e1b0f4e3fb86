package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "warden/pkg/domain-errors"
)

func TestTextIsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"  padded  ",
		"<script>alert(1)</script>hello",
		"<scr<script>ipt>alert(1)</script>",
		"javajavascript:script:alert(1)",
		"<a href=\"x\" onclick=\"evil()\">link</a>",
		"tab\tand\nnewline\x00null",
		"café ünïcödé",
		"\xff\xfeinvalid utf8",
		"data:text/html;base64,AAAA",
		"ononclick==x",
		strings.Repeat("é", 3000),
		strings.Repeat("a&", 500),
	}
	for _, level := range []Level{Basic, Strict} {
		for _, in := range inputs {
			once := Text(in, level)
			assert.Equal(t, once, Text(once, level), "level=%d input=%q", level, in)
		}
	}
}

func TestTextStrictRemovesMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "script block", in: "<script>alert('x')</script>hello", want: "hello"},
		{name: "tags", in: "<b>bold</b> text", want: "bold text"},
		{name: "javascript scheme", in: "javascript:alert(1)", want: "alert(1)"},
		{name: "nested scheme", in: "javajavascript:script:run()", want: "run()"},
		{name: "event handler", in: "x onload=run()", want: "x run()"},
		{name: "quotes and ampersands", in: `a"b'c&d`, want: "abcd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in, Strict))
		})
	}
}

func TestTextBasicKeepsMarkupButDropsControls(t *testing.T) {
	assert.Equal(t, "<b>ok</b>", Text("<b>ok</b>", Basic))
	assert.Equal(t, "abc", Text("a\x00b\x07c", Basic))
}

func TestTextTruncatesOversizedInput(t *testing.T) {
	assert.Len(t, Text(strings.Repeat("a", 10_000), Basic), MaxBasicLength)
	assert.Len(t, Text(strings.Repeat("a", 1_000), Strict), MaxStrictLength)

	// two-byte runes must not be split at the cut
	out := Text(strings.Repeat("é", 200), Strict)
	assert.LessOrEqual(t, len(out), MaxStrictLength)
	assert.True(t, strings.HasPrefix(strings.Repeat("é", 200), out))
}

func TestUserID(t *testing.T) {
	got, err := UserID("  alice@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got)

	for _, bad := range []string{"", "   ", "<script>", "bob smith", strings.Repeat("u", MaxUserIDLength+1)} {
		_, err := UserID(bad)
		require.Error(t, err, "input %q", bad)
		assert.ErrorIs(t, err, dErrors.ErrValidation)
		assert.Equal(t, "user_id", dErrors.FieldOf(err))
	}
}

func TestIP(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "192.168.1.10", want: "192.168.1.10"},
		{in: "2001:DB8::1", want: "2001:db8::1"},
		{in: "::ffff:10.0.0.1", want: "10.0.0.1"},
		{in: "fe80::1%eth0", wantErr: true},
		{in: "999.1.1.1", wantErr: true},
		{in: "not-an-ip", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := IP(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, "source_ip", dErrors.FieldOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResource(t *testing.T) {
	got, err := Resource("/api/users/42")
	require.NoError(t, err)
	assert.Equal(t, "/api/users/42", got)

	got, err = Resource("/files/<b>report</b>")
	require.NoError(t, err)
	assert.Equal(t, "/files/report", got)

	_, err = Resource("/files/../etc/passwd")
	require.Error(t, err)
	assert.Equal(t, "resource", dErrors.FieldOf(err))

	_, err = Resource("/a.<b>./etc")
	require.Error(t, err, "dots joined by markup removal")

	_, err = Resource(strings.Repeat("r", MaxResourceLength+1))
	require.Error(t, err)
}

func TestMetadata(t *testing.T) {
	out := Metadata(map[string]any{
		"reason":      "bad\x00_password",
		"attempts":    3,
		"sensitive":   true,
		"nested":      map[string]any{"a": 1},
		"list":        []string{"x"},
		"bad key!":    "dropped",
		"data.source": "db",
	})
	assert.Equal(t, map[string]any{
		"reason":      "bad_password",
		"attempts":    3,
		"sensitive":   true,
		"data.source": "db",
	}, out)

	assert.Nil(t, Metadata(nil))
	assert.Nil(t, Metadata(map[string]any{"nested": []int{1}}))
}

func TestMetadataCapsKeyCount(t *testing.T) {
	in := make(map[string]any, 50)
	for i := range 50 {
		in["k"+strings.Repeat("x", i)] = i
	}
	assert.Len(t, Metadata(in), MaxMetadataKeys)
}
