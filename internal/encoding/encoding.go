// Package encoding maps charset names to x/text encodings and builds the
// ordered candidate list used when decoding a file of unknown encoding.
package encoding

import (
	"os"
	"strings"
	"sync"

	xenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// Encoding is a named character encoding. Values returned by Get are
// shared, so two lookups of the same charset compare equal with ==.
type Encoding struct {
	charset string
	name    string
	enc     xenc.Encoding
}

// Charset returns the canonical charset, e.g. "ISO-8859-15"
func (e *Encoding) Charset() string { return e.charset }

// Name returns the human readable family, e.g. "Western"
func (e *Encoding) Name() string { return e.name }

// String renders "Western (ISO-8859-15)"
func (e *Encoding) String() string {
	return e.name + " (" + e.charset + ")"
}

// IsUTF8 reports whether this is the UTF-8 encoding
func (e *Encoding) IsUTF8() bool { return e == utf8 }

// Decoder returns a fresh x/text decoder for the encoding
func (e *Encoding) Decoder() *xenc.Decoder { return e.enc.NewDecoder() }

// Encoder returns a fresh x/text encoder for the encoding
func (e *Encoding) Encoder() *xenc.Encoder { return e.enc.NewEncoder() }

var mu sync.Mutex

var utf8 = &Encoding{"UTF-8", "Unicode", unicode.UTF8}

var known = []*Encoding{
	utf8,
	{"UTF-16", "Unicode", unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)},
	{"UTF-16BE", "Unicode", unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)},
	{"UTF-16LE", "Unicode", unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
	{"ISO-8859-1", "Western", charmap.ISO8859_1},
	{"ISO-8859-15", "Western", charmap.ISO8859_15},
	{"WINDOWS-1252", "Western", charmap.Windows1252},
	{"IBM850", "Western", charmap.CodePage850},
	{"ISO-8859-2", "Central European", charmap.ISO8859_2},
	{"WINDOWS-1250", "Central European", charmap.Windows1250},
	{"ISO-8859-3", "South European", charmap.ISO8859_3},
	{"ISO-8859-4", "Baltic", charmap.ISO8859_4},
	{"ISO-8859-13", "Baltic", charmap.ISO8859_13},
	{"WINDOWS-1257", "Baltic", charmap.Windows1257},
	{"ISO-8859-5", "Cyrillic", charmap.ISO8859_5},
	{"WINDOWS-1251", "Cyrillic", charmap.Windows1251},
	{"KOI8-R", "Cyrillic", charmap.KOI8R},
	{"KOI8-U", "Cyrillic/Ukrainian", charmap.KOI8U},
	{"IBM866", "Cyrillic", charmap.CodePage866},
	{"ISO-8859-6", "Arabic", charmap.ISO8859_6},
	{"WINDOWS-1256", "Arabic", charmap.Windows1256},
	{"ISO-8859-7", "Greek", charmap.ISO8859_7},
	{"WINDOWS-1253", "Greek", charmap.Windows1253},
	{"ISO-8859-8", "Hebrew Visual", charmap.ISO8859_8},
	{"WINDOWS-1255", "Hebrew", charmap.Windows1255},
	{"ISO-8859-9", "Turkish", charmap.ISO8859_9},
	{"WINDOWS-1254", "Turkish", charmap.Windows1254},
	{"ISO-8859-10", "Nordic", charmap.ISO8859_10},
	{"WINDOWS-874", "Thai", charmap.Windows874},
	{"WINDOWS-1258", "Vietnamese", charmap.Windows1258},
	{"MAC_ROMAN", "Western", charmap.Macintosh},
	{"SHIFT_JIS", "Japanese", japanese.ShiftJIS},
	{"EUC-JP", "Japanese", japanese.EUCJP},
	{"ISO-2022-JP", "Japanese", japanese.ISO2022JP},
	{"EUC-KR", "Korean", korean.EUCKR},
	{"GBK", "Chinese Simplified", simplifiedchinese.GBK},
	{"GB18030", "Chinese Simplified", simplifiedchinese.GB18030},
	{"HZ-GB-2312", "Chinese Simplified", simplifiedchinese.HZGB2312},
	{"BIG5", "Chinese Traditional", traditionalchinese.Big5},
}

// aliases maps common spellings onto canonical charsets
var aliases = map[string]string{
	"UTF8":       "UTF-8",
	"LATIN1":     "ISO-8859-1",
	"LATIN-1":    "ISO-8859-1",
	"LATIN9":     "ISO-8859-15",
	"CP1252":     "WINDOWS-1252",
	"CP1251":     "WINDOWS-1251",
	"CP1250":     "WINDOWS-1250",
	"SJIS":       "SHIFT_JIS",
	"SHIFT-JIS":  "SHIFT_JIS",
	"MACINTOSH":  "MAC_ROMAN",
	"BIG-5":      "BIG5",
	"UTF16":      "UTF-16",
	"EUCJP":      "EUC-JP",
	"EUCKR":      "EUC-KR",
	"KOI8R":      "KOI8-R",
	"ISO8859-1":  "ISO-8859-1",
	"ISO8859-15": "ISO-8859-15",
}

// UTF8 returns the UTF-8 encoding
func UTF8() *Encoding { return utf8 }

// All returns every built-in encoding in display order
func All() []*Encoding {
	mu.Lock()
	defer mu.Unlock()
	out := make([]*Encoding, len(known))
	copy(out, known)
	return out
}

// Get resolves a charset name. "CURRENT" means the locale's charset.
// Charsets outside the built-in table are looked up in the IANA index.
func Get(charset string) (*Encoding, bool) {
	cs := strings.ToUpper(strings.TrimSpace(charset))
	if cs == "" {
		return nil, false
	}
	if cs == "CURRENT" {
		return Current(), true
	}
	if a, ok := aliases[cs]; ok {
		cs = a
	}

	mu.Lock()
	defer mu.Unlock()
	for _, e := range known {
		if e.charset == cs {
			return e, true
		}
	}

	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return nil, false
	}
	name, err := ianaindex.IANA.Name(enc)
	if err != nil {
		name = cs
	}
	name = strings.ToUpper(name)
	for _, e := range known {
		if e.charset == name {
			return e, true
		}
	}
	e := &Encoding{charset: name, name: name, enc: enc}
	known = append(known, e)
	return e, true
}

// Current returns the encoding named by the locale environment, falling
// back to UTF-8
func Current() *Encoding {
	for _, v := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		loc := os.Getenv(v)
		if loc == "" {
			continue
		}
		if i := strings.IndexByte(loc, '.'); i >= 0 {
			cs := loc[i+1:]
			if j := strings.IndexByte(cs, '@'); j >= 0 {
				cs = cs[:j]
			}
			if cs != "" && strings.ToUpper(cs) != "CURRENT" {
				if e, ok := Get(cs); ok {
					return e
				}
			}
		}
		break
	}
	return utf8
}

// DefaultCandidates is the list used when the user configured none
func DefaultCandidates() []*Encoding {
	out := []*Encoding{utf8}
	if cur := Current(); cur != utf8 {
		out = append(out, cur)
	}
	iso, _ := Get("ISO-8859-15")
	u16, _ := Get("UTF-16")
	return append(out, iso, u16)
}

// FromCharsets resolves a list of charset names, dropping unknown ones and
// keeping only the first occurrence of each encoding
func FromCharsets(charsets []string) []*Encoding {
	var out []*Encoding
	for _, cs := range charsets {
		e, ok := Get(cs)
		if !ok || contains(out, e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Charsets is the inverse of FromCharsets
func Charsets(encs []*Encoding) []string {
	out := make([]string, 0, len(encs))
	for _, e := range encs {
		out = append(out, e.charset)
	}
	return out
}

// Candidates builds the ordered list of encodings to try when loading.
// The settings list comes first (defaults when it is empty), the charset
// remembered in the document metadata is prepended, then the encoding the
// file was last read or written with. The result may contain duplicates;
// only the first occurrence of each encoding counts.
func Candidates(settings []string, metadataCharset string, fileEncoding *Encoding) []*Encoding {
	var candidates []*Encoding
	if len(settings) > 0 {
		candidates = FromCharsets(settings)
	} else {
		candidates = DefaultCandidates()
	}

	if metadataCharset != "" {
		if e, ok := Get(metadataCharset); ok {
			candidates = append([]*Encoding{e}, candidates...)
		}
	}

	if fileEncoding != nil {
		candidates = append([]*Encoding{fileEncoding}, candidates...)
	}
	return candidates
}

// Dedup keeps the first occurrence of each encoding
func Dedup(encs []*Encoding) []*Encoding {
	out := make([]*Encoding, 0, len(encs))
	for _, e := range encs {
		if !contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}

func contains(list []*Encoding, e *Encoding) bool {
	for _, x := range list {
		if x == e {
			return true
		}
	}
	return false
}

// AddCandidates prepends each encoding of add that list does not hold yet
func AddCandidates(list, add []*Encoding) []*Encoding {
	out := append([]*Encoding(nil), list...)
	for _, e := range add {
		if e == nil || contains(out, e) {
			continue
		}
		out = append([]*Encoding{e}, out...)
	}
	return out
}

// RemoveCandidates drops every encoding of rm from list
func RemoveCandidates(list, rm []*Encoding) []*Encoding {
	out := make([]*Encoding, 0, len(list))
	for _, e := range list {
		if !contains(rm, e) {
			out = append(out, e)
		}
	}
	return out
}
