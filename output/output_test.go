package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/use-agent/taxsale/models"
)

func ptr(s string) *string { return &s }

func TestWriteRawTSV(t *testing.T) {
	records := []models.RawRecord{
		{EntityTitle: ptr("Smith County"), FileLabel: ptr("Sale\tNotice\nJune"), FileHref: ptr("https://www.pbfcm.com/docs/smith.pdf")},
		{EntityTitle: ptr("Harris County"), FileLabel: nil, FileHref: nil},
	}

	var buf bytes.Buffer
	if err := WriteRawTSV(&buf, records); err != nil {
		t.Fatalf("WriteRawTSV: %v", err)
	}

	want := "tax-list-entity-title\ttax-list-file\ttax-list-file href\n" +
		"Smith County\tSale Notice June\thttps://www.pbfcm.com/docs/smith.pdf\n" +
		"Harris County\t\t\n"
	if got := buf.String(); got != want {
		t.Errorf("TSV output = %q, want %q", got, want)
	}
}

func TestWriteRawTSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRawTSV(&buf, nil); err != nil {
		t.Fatalf("WriteRawTSV: %v", err)
	}
	if got := buf.String(); got != "tax-list-entity-title\ttax-list-file\ttax-list-file href\n" {
		t.Errorf("expected header only, got %q", got)
	}
}

func TestWriteNormalizedCSV(t *testing.T) {
	records := []models.NormalizedRecord{
		{EntityTitle: ptr("Smith County"), FileLabel: ptr("Notice"), FileURL: ptr("https://www.pbfcm.com/docs/smith.pdf"), FileType: ptr("pdf")},
		{EntityTitle: ptr("Harris County, TX"), FileLabel: nil, FileURL: nil, FileType: nil},
	}

	var buf bytes.Buffer
	if err := WriteNormalizedCSV(&buf, records); err != nil {
		t.Fatalf("WriteNormalizedCSV: %v", err)
	}

	want := "entity_title,file_label,file_url,file_type\n" +
		"Smith County,Notice,https://www.pbfcm.com/docs/smith.pdf,pdf\n" +
		"\"Harris County, TX\",,,\n"
	if got := buf.String(); got != want {
		t.Errorf("CSV output = %q, want %q", got, want)
	}
}

func TestWriteNDJSON(t *testing.T) {
	records := []models.NormalizedRecord{
		{EntityTitle: ptr("Smith County"), FileLabel: ptr("Notice"), FileURL: ptr("https://www.pbfcm.com/docs/s.pdf?a=1&b=2"), FileType: ptr("pdf")},
		{EntityTitle: ptr("Harris County"), FileLabel: nil, FileURL: nil, FileType: nil},
	}

	var buf bytes.Buffer
	if err := WriteNDJSON(&buf, records); err != nil {
		t.Fatalf("WriteNDJSON: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if want := `{"entity_title":"Smith County","file_label":"Notice","file_url":"https://www.pbfcm.com/docs/s.pdf?a=1&b=2","file_type":"pdf"}`; lines[0] != want {
		t.Errorf("line 1 = %s, want %s", lines[0], want)
	}
	if want := `{"entity_title":"Harris County","file_label":null,"file_url":null,"file_type":null}`; lines[1] != want {
		t.Errorf("line 2 = %s, want %s", lines[1], want)
	}
}

func TestShorten(t *testing.T) {
	long := strings.Repeat("a", 150)

	tests := []struct {
		name string
		in   *string
		want string
	}{
		{"nil", nil, ""},
		{"empty", ptr(""), ""},
		{"short", ptr("Smith County"), "Smith County"},
		{"collapses whitespace", ptr("  Smith \t County\n Sale  "), "Smith County Sale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Shorten(tt.in, 100); got != tt.want {
				t.Errorf("Shorten(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	got := Shorten(&long, 100)
	if utf8.RuneCountInString(got) != 100 {
		t.Errorf("truncated length = %d runes, want 100", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated value should end with ellipsis, got %q", got)
	}
}

func TestPrintProgress_Plain(t *testing.T) {
	records := []models.NormalizedRecord{
		{EntityTitle: ptr("Smith County"), FileLabel: ptr("June Sale"), FileType: ptr("pdf")},
		{EntityTitle: ptr("Harris County"), FileLabel: nil, FileType: nil},
	}

	var buf bytes.Buffer
	PrintProgress(&buf, records, false)

	want := "[001] Smith County  —  June Sale\n[002] Harris County  —  \n"
	if got := buf.String(); got != want {
		t.Errorf("progress output = %q, want %q", got, want)
	}
}

func TestPrintProgress_Colored(t *testing.T) {
	text.EnableColors()
	defer text.DisableColors()

	records := []models.NormalizedRecord{
		{EntityTitle: ptr("Smith County"), FileLabel: ptr("June Sale"), FileType: ptr("pdf")},
	}

	var buf bytes.Buffer
	PrintProgress(&buf, records, true)

	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected ANSI escape codes in colored output, got %q", buf.String())
	}
}

func TestWriteSummary(t *testing.T) {
	res := &models.ScrapeResult{
		SourceURL: "https://www.pbfcm.com/taxsale.html",
		Count:     3,
		Normalized: []models.NormalizedRecord{
			{FileURL: ptr("https://x/a.pdf"), FileType: ptr("pdf")},
			{FileURL: ptr("https://x/b.docx"), FileType: ptr("doc")},
			{FileURL: nil, FileType: nil},
		},
	}

	var buf bytes.Buffer
	WriteSummary(&buf, res, 1234*time.Millisecond)

	out := buf.String()
	for _, want := range []string{"RECORDS", "PDF", "1.234s"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
