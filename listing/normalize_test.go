package listing

import (
	"testing"

	"github.com/use-agent/taxsale/models"
)

func TestNormalize(t *testing.T) {
	r := models.RawRecord{
		EntityTitle: strptr("  Smith County  "),
		FileLabel:   strptr("Notice"),
		FileHref:    strptr("https://www.pbfcm.com/docs/notice.pdf"),
	}

	n := Normalize(r)
	wantStr(t, "EntityTitle", n.EntityTitle, "Smith County")
	wantStr(t, "FileLabel", n.FileLabel, "Notice")
	wantStr(t, "FileURL", n.FileURL, "https://www.pbfcm.com/docs/notice.pdf")
	wantStr(t, "FileType", n.FileType, "pdf")
}

func TestNormalize_EmptyFieldsCollapseToNil(t *testing.T) {
	tests := []struct {
		name string
		in   models.RawRecord
	}{
		{"all nil", models.RawRecord{}},
		{"whitespace title and label", models.RawRecord{EntityTitle: strptr("   "), FileLabel: strptr("\t\n")}},
		{"empty href", models.RawRecord{FileHref: strptr("")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(tt.in)
			wantNil(t, "EntityTitle", n.EntityTitle)
			wantNil(t, "FileLabel", n.FileLabel)
			wantNil(t, "FileURL", n.FileURL)
			wantNil(t, "FileType", n.FileType)
		})
	}
}

func TestNormalize_HrefPassedThroughUntrimmed(t *testing.T) {
	// Canonicalization already happened upstream; normalization must not
	// rewrite the URL, only classify it.
	n := Normalize(models.RawRecord{FileHref: strptr("https://x/y%20z.pdf")})
	wantStr(t, "FileURL", n.FileURL, "https://x/y%20z.pdf")
	wantStr(t, "FileType", n.FileType, "pdf")
}

func TestFileType(t *testing.T) {
	tests := []struct {
		url  string
		want string // "" means nil
	}{
		{"https://x/y/doc.PDF", "pdf"},
		{"https://x/a.pdf", "pdf"},
		{"https://x/report.doc", "doc"},
		{"https://x/report.docx", "doc"},
		{"https://x/sheet.xls", "xls"},
		{"https://x/sheet.XLSX", "xls"},
		{"https://x/a.pdf?dl=1", "pdf"},
		{"https://x/a.pdf#page=2", "pdf"},
		{"https://x/download?file=a.pdf", ""},
		{"https://x/page.html", ""},
		{"https://x/no-extension", ""},
		{"https://x/", ""},
		{"://broken", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := FileType(tt.url)
			if tt.want == "" {
				if got != nil {
					t.Errorf("FileType(%q) = %q, want nil", tt.url, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("FileType(%q) = nil, want %q", tt.url, tt.want)
			}
			if *got != tt.want {
				t.Errorf("FileType(%q) = %q, want %q", tt.url, *got, tt.want)
			}
		})
	}
}

func TestNormalizeAll_IndexAligned(t *testing.T) {
	in := []models.RawRecord{
		{EntityTitle: strptr("A"), FileHref: strptr("https://x/a.pdf")},
		{EntityTitle: strptr("B")},
		{EntityTitle: strptr("C"), FileHref: strptr("https://x/c.xlsx")},
	}

	out := NormalizeAll(in)
	if len(out) != len(in) {
		t.Fatalf("got %d records, want %d", len(out), len(in))
	}
	wantStr(t, "out[0].EntityTitle", out[0].EntityTitle, "A")
	wantStr(t, "out[0].FileType", out[0].FileType, "pdf")
	wantStr(t, "out[1].EntityTitle", out[1].EntityTitle, "B")
	wantNil(t, "out[1].FileURL", out[1].FileURL)
	wantStr(t, "out[2].FileType", out[2].FileType, "xls")
}

func TestNormalizeAll_EmptyInput(t *testing.T) {
	out := NormalizeAll([]models.RawRecord{})
	if out == nil {
		t.Fatal("NormalizeAll returned nil, want empty slice")
	}
	if len(out) != 0 {
		t.Fatalf("got %d records, want 0", len(out))
	}
}
