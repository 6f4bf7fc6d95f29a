package filters

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Cables & Cables!", "cables-cables"},
		{"  Hello World  ", "hello-world"},
		{"Éducation nationale", "education-nationale"},
		{"date-2009", "date-2009"},
		{"---", ""},
		{"country_UK", "country-uk"},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTagTruncates(t *testing.T) {
	long := strings.Repeat("b", MaxTagLength+20)
	got := NormalizeTag(long)
	if len(got) != MaxTagLength {
		t.Fatalf("expected tag of length %d, got %d", MaxTagLength, len(got))
	}
	if got != strings.Repeat("b", MaxTagLength) {
		t.Errorf("unexpected truncated tag %q", got)
	}

	cyrillic := NormalizeTag("a" + strings.Repeat("д", MaxTagLength+20))
	if !utf8.ValidString(cyrillic) {
		t.Fatalf("truncated tag is not valid UTF-8: %q", cyrillic)
	}
	if n := utf8.RuneCountInString(cyrillic); n != MaxTagLength {
		t.Errorf("expected %d characters, got %d", MaxTagLength, n)
	}
	if !strings.HasPrefix(cyrillic, "aд") {
		t.Errorf("unexpected truncated tag %q", cyrillic)
	}
}

func TestNormalizeString(t *testing.T) {
	got := NormalizeString("  Caf&eacute; &amp; th&eacute;\n")
	if got != "Café & thé" {
		t.Errorf("NormalizeString = %q", got)
	}
}

func TestEmptyNone(t *testing.T) {
	if EmptyNone("   ") != nil {
		t.Error("blank string should map to nil")
	}
	if EmptyNone("x") != "x" {
		t.Error("non blank string should pass through")
	}
	if EmptyNone(42.0) != 42.0 {
		t.Error("non string should pass through")
	}
}

func TestBoolean(t *testing.T) {
	for _, in := range []any{true, "True", "yes", "1", 1.0} {
		if b, err := Boolean(in); err != nil || !b {
			t.Errorf("Boolean(%v) = %v, %v", in, b, err)
		}
	}
	for _, in := range []any{false, "false", "no", "0", 0.0} {
		if b, err := Boolean(in); err != nil || b {
			t.Errorf("Boolean(%v) = %v, %v", in, b, err)
		}
	}
	if _, err := Boolean("maybe"); err == nil {
		t.Error("expected error for unknown boolean spelling")
	}
}

func TestEmail(t *testing.T) {
	if _, err := Email("jane.doe@example.org"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, bad := range []string{"not-an-email", "Jane <jane@example.org>", "@example.org"} {
		if _, err := Email(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestURL(t *testing.T) {
	if _, err := URL("http://ckan.net/storage/f/file/3ffdcd42"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, bad := range []string{"www.example.org/page", "Some source label", "mailto:a@b.c", ""} {
		if _, err := URL(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestHash(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{strings.Repeat("a", 32), "md5"},
		{"689afc083c6316259955f499580bdf41bfc5e495", "sha1"},
		{strings.Repeat("0", 64), "sha256"},
	}
	for _, tt := range tests {
		got := Hash(tt.in)
		if got == nil || got.Type != tt.want {
			t.Errorf("Hash(%q) = %+v, want type %s", tt.in, got, tt.want)
		}
	}
	if Hash("abc") != nil {
		t.Error("short hash should not be detected")
	}
	if Hash(strings.Repeat("z", 40)) != nil {
		t.Error("non hex value should not be detected")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1375", 1375},
		{"2.5 MB", 2500000},
		{"12 KiB", 12 * 1024},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if err != nil {
			t.Fatalf("ParseSize(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if _, err := ParseSize("lots"); err == nil {
		t.Error("expected error for unparsable size")
	}
}

func TestToDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2013-08-01T09:43:09.031465", time.Date(2013, 8, 1, 9, 43, 9, 31465000, time.UTC)},
		{"2013-10-01T15:59:56", time.Date(2013, 10, 1, 15, 59, 56, 0, time.UTC)},
		{"2019-12-10T00:00:00+00:00", time.Date(2019, 12, 10, 0, 0, 0, 0, time.UTC)},
		{"2019-09-30", time.Date(2019, 9, 30, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ToDate(tt.in)
		if err != nil {
			t.Fatalf("ToDate(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("ToDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ToDate("yesterday"); err == nil {
		t.Error("expected error for unparsable date")
	}
}

func TestDKANToDate(t *testing.T) {
	got, err := DKANToDate("Date changed  Mon, 09/30/2019 - 14:51")
	if err != nil {
		t.Fatalf("DKANToDate: %v", err)
	}
	want := time.Date(2019, 9, 30, 14, 51, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DKANToDate = %v, want %v", got, want)
	}
}

func TestDateRangeBounds(t *testing.T) {
	start, err := DateRangeStart("2019")
	if err != nil || !start.Equal(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DateRangeStart(2019) = %v, %v", start, err)
	}
	end, err := DateRangeEnd("2019")
	if err != nil || !end.Equal(time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DateRangeEnd(2019) = %v, %v", end, err)
	}
	end, err = DateRangeEnd("2020-02")
	if err != nil || !end.Equal(time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DateRangeEnd(2020-02) = %v, %v", end, err)
	}
	start, err = DateRangeStart("2018-06-15T10:00:00")
	if err != nil || !start.Equal(time.Date(2018, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DateRangeStart(full) = %v, %v", start, err)
	}
}
