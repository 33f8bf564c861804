package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGet(t *testing.T, cs string) *Encoding {
	t.Helper()
	e, ok := Get(cs)
	require.True(t, ok, "charset %s", cs)
	return e
}

func TestGet_CanonicalAndAliases(t *testing.T) {
	assert.Same(t, UTF8(), mustGet(t, "utf-8"))
	assert.Same(t, mustGet(t, "ISO-8859-1"), mustGet(t, "latin1"))
	assert.Equal(t, "Western (ISO-8859-15)", mustGet(t, "iso-8859-15").String())

	_, ok := Get("no-such-charset")
	assert.False(t, ok)
	_, ok = Get("")
	assert.False(t, ok)
}

func TestCurrent_FromLocale(t *testing.T) {
	t.Setenv("LC_ALL", "de_DE.ISO-8859-1@euro")
	assert.Equal(t, "ISO-8859-1", Current().Charset())

	t.Setenv("LC_ALL", "C")
	t.Setenv("LC_CTYPE", "")
	t.Setenv("LANG", "")
	assert.True(t, Current().IsUTF8())
}

func TestCandidates_MetadataCharsetBeforeDefaults(t *testing.T) {
	t.Setenv("LC_ALL", "en_US.UTF-8")

	got := Candidates(nil, "ISO-8859-1", nil)
	defaults := DefaultCandidates()

	require.Len(t, got, len(defaults)+1)
	assert.Equal(t, "ISO-8859-1", got[0].Charset())
	assert.Equal(t, defaults, got[1:])
}

func TestCandidates_FileEncodingFirst(t *testing.T) {
	file := mustGet(t, "WINDOWS-1252")
	got := Candidates([]string{"UTF-8", "KOI8-R"}, "UTF-8", file)

	assert.Equal(t, []string{"WINDOWS-1252", "UTF-8", "UTF-8", "KOI8-R"}, Charsets(got))
	assert.Equal(t, []string{"WINDOWS-1252", "UTF-8", "KOI8-R"}, Charsets(Dedup(got)))
}

func TestCandidates_UnresolvableMetadataIgnored(t *testing.T) {
	got := Candidates([]string{"UTF-8"}, "bogus", nil)
	assert.Equal(t, []string{"UTF-8"}, Charsets(got))
}

func TestFromCharsets_DropsUnknownAndDuplicates(t *testing.T) {
	got := FromCharsets([]string{"utf8", "bogus", "UTF-8", "iso-8859-15"})
	assert.Equal(t, []string{"UTF-8", "ISO-8859-15"}, Charsets(got))
}

func TestAddRemoveCandidates(t *testing.T) {
	list := FromCharsets([]string{"UTF-8", "ISO-8859-15"})
	list = AddCandidates(list, FromCharsets([]string{"KOI8-R", "UTF-8"}))
	assert.Equal(t, []string{"KOI8-R", "UTF-8", "ISO-8859-15"}, Charsets(list))

	list = RemoveCandidates(list, FromCharsets([]string{"UTF-8"}))
	assert.Equal(t, []string{"KOI8-R", "ISO-8859-15"}, Charsets(list))
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	latin := mustGet(t, "ISO-8859-1")
	out, err := latin.Decoder().Bytes([]byte{0x63, 0x61, 0x66, 0xe9})
	require.NoError(t, err)
	assert.Equal(t, "café", string(out))

	back, err := latin.Encoder().Bytes(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x63, 0x61, 0x66, 0xe9}, back)
}
