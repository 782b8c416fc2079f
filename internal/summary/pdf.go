package summary

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

var linkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// WritePDF renders Markdown produced by this package to a PDF at outPath.
// Headings, table rows and list items are laid out line by line; links
// become plain text since asset paths are relative to the document.
func WritePDF(markdown, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		switch {
		case s == "":
			pdf.Ln(3)
		case strings.HasPrefix(s, "#"):
			level := len(s) - len(strings.TrimLeft(s, "#"))
			text := strings.TrimSpace(s[level:])
			if text == "" {
				continue
			}
			size := 16.0
			if level >= 2 {
				size = 13.0
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 11)
		case strings.HasPrefix(s, "|"):
			cells := tableCells(s)
			if cells == nil {
				continue
			}
			w := 190.0 / float64(len(cells))
			for _, c := range cells {
				pdf.CellFormat(w, 6, tr(c), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		default:
			s = linkRe.ReplaceAllString(s, "$1 ($2)")
			pdf.MultiCell(0, 5, tr(s), "", "L", false)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(outPath)
}

// tableCells splits a Markdown table row. Separator rows return nil.
func tableCells(row string) []string {
	parts := strings.Split(strings.Trim(row, "|"), "|")
	out := make([]string, 0, len(parts))
	sep := true
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if strings.Trim(p, "-:") != "" {
			sep = false
		}
		out = append(out, p)
	}
	if sep {
		return nil
	}
	return out
}
