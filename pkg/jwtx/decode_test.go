package jwtx_test

import (
	"encoding/base64"
	"testing"

	"github.com/aussiebroadwan/authclient/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func token(payload string, enc *base64.Encoding) string {
	return "h." + enc.EncodeToString([]byte(payload)) + ".s"
}

func TestDecodeClaims(t *testing.T) {
	t.Parallel()

	t.Run("known token", func(t *testing.T) {
		c, err := jwtx.DecodeClaims("h.eyJzdWIiOiJ1MSIsInVuaXF1ZV9uYW1lIjoiam9lIn0.s")
		require.NoError(t, err)
		require.Equal(t, "u1", c.Subject)
		require.Equal(t, "joe", c.UniqueName)
		require.Empty(t, c.Email)
	})

	t.Run("padded payload", func(t *testing.T) {
		c, err := jwtx.DecodeClaims(token(`{"sub":"u2"}`, base64.URLEncoding))
		require.NoError(t, err)
		require.Equal(t, "u2", c.Subject)
	})

	t.Run("standard alphabet payload", func(t *testing.T) {
		// "?>?" encodes to characters outside the url-safe alphabet.
		payload := `{"name":"?>?>"}`
		c, err := jwtx.DecodeClaims(token(payload, base64.RawStdEncoding))
		require.NoError(t, err)
		require.Equal(t, "?>?>", c.Name)
	})

	t.Run("multi-byte text survives", func(t *testing.T) {
		c, err := jwtx.DecodeClaims(token(`{"given_name":"José Ñúñez 日本語 🚀"}`, base64.RawURLEncoding))
		require.NoError(t, err)
		require.Equal(t, "José Ñúñez 日本語 🚀", c.GivenName)
	})

	t.Run("two segments are enough", func(t *testing.T) {
		payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"x"}`))
		c, err := jwtx.DecodeClaims("h." + payload)
		require.NoError(t, err)
		require.Equal(t, "x", c.Subject)
	})

	t.Run("registered claims", func(t *testing.T) {
		c, err := jwtx.DecodeClaims(token(`{"iss":"api","aud":"spa","iat":1700000000,"exp":1700000900}`, base64.RawURLEncoding))
		require.NoError(t, err)
		require.Equal(t, "api", c.Issuer)
		require.Equal(t, []string{"spa"}, []string(c.Audience))
		require.Equal(t, int64(1700000900), c.ExpiresAt.Unix())
		require.Equal(t, int64(1700000000), c.IssuedAt.Unix())
	})

	t.Run("numeric string claims", func(t *testing.T) {
		c, err := jwtx.DecodeClaims(token(`{"sub":42,"nameid":7,"unique_name":1001,"email":"a@b"}`, base64.RawURLEncoding))
		require.NoError(t, err)
		require.Equal(t, "42", c.Subject)
		require.Equal(t, "7", c.NameID)
		require.Equal(t, "1001", c.UniqueName)
		require.Equal(t, "a@b", c.Email)
	})

	t.Run("large numeric subject keeps its digits", func(t *testing.T) {
		c, err := jwtx.DecodeClaims(token(`{"sub":12345678901234567890}`, base64.RawURLEncoding))
		require.NoError(t, err)
		require.Equal(t, "12345678901234567890", c.Subject)
	})

	t.Run("bad registered claims are dropped", func(t *testing.T) {
		c, err := jwtx.DecodeClaims(token(`{"sub":"u1","unique_name":"joe","aud":5,"exp":"soon"}`, base64.RawURLEncoding))
		require.NoError(t, err)
		require.Equal(t, "u1", c.Subject)
		require.Equal(t, "joe", c.UniqueName)
		require.Empty(t, c.Audience)
		require.Nil(t, c.ExpiresAt)
	})

	t.Run("non-scalar string claims read as empty", func(t *testing.T) {
		c, err := jwtx.DecodeClaims(token(`{"sub":{"x":1},"name":["a"],"given_name":null}`, base64.RawURLEncoding))
		require.NoError(t, err)
		require.Empty(t, c.Subject)
		require.Empty(t, c.Name)
		require.Empty(t, c.GivenName)
	})
}

func TestDecodeClaims_Failures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", jwtx.ErrMalformed},
		{"single segment", "abc", jwtx.ErrMalformed},
		{"empty payload", "abc..def", jwtx.ErrMalformed},
		{"trailing dot", "abc.", jwtx.ErrMalformed},
		{"bad base64", "h.!!!.s", jwtx.ErrMalformed},
		{"not json", token("hello", base64.RawURLEncoding), jwtx.ErrInvalidClaims},
		{"json array", token(`["a"]`, base64.RawURLEncoding), jwtx.ErrInvalidClaims},
		{"truncated json", token(`{"sub":`, base64.RawURLEncoding), jwtx.ErrInvalidClaims},
		{"trailing data", token(`{"sub":"x"} junk`, base64.RawURLEncoding), jwtx.ErrInvalidClaims},
		{"invalid utf-8", "h." + base64.RawURLEncoding.EncodeToString([]byte{'{', 0xff, 0xfe, '}'}) + ".s", jwtx.ErrInvalidEncoding},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := jwtx.DecodeClaims(tc.token)
			require.ErrorIs(t, err, tc.want)
			require.Nil(t, c)
		})
	}
}
