package news

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignatureIgnoresPayloadFields(t *testing.T) {
	t.Parallel()

	a := Entry{Topic: "golang", Title: "Go 1.26 released", Source: StringPtr("The Register"), URL: "https://a.example"}
	b := Entry{Topic: "golang", Title: "Go 1.26 released", Source: StringPtr("The Register"), URL: "https://b.example", Snippet: "x"}

	require.Equal(t, a.Signature(), b.Signature())
}

func TestSignatureDistinguishesMissingSource(t *testing.T) {
	t.Parallel()

	withEmpty := Entry{Topic: "golang", Title: "t", Source: StringPtr("")}
	without := Entry{Topic: "golang", Title: "t"}

	require.NotEqual(t, withEmpty.Signature(), without.Signature())
	require.False(t, without.Signature().HasSource)
}

func TestDomain(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://www.Example.com/path": "example.com",
		"http://news.example.org:8080": "news.example.org",
		"example.net/a":                "example.net",
		"":                             "unknown",
		"http://%":                     "unknown",
	}
	for in, want := range cases {
		require.Equal(t, want, Domain(in), in)
	}
}
