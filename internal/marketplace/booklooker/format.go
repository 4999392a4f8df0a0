package booklooker

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/raine/bookrelist/internal/book"
	"github.com/rs/zerolog/log"
)

const (
	DefaultDescription = "Gut erhaltenes Exemplar."
	DefaultBinding     = "Gebundene Ausgabe"
	defaultLanguage    = "de"
	// Column count of the article import format.
	columnCount = 25
)

// Article numbers of the book sections accepted by the import.
var sparten = map[string]bool{
	"2573": true, "886": true, "887": true, "881": true, "880": true, "1806": true,
	"2968": true, "2534": true, "873": true, "879": true, "878": true, "877": true,
	"884": true, "883": true, "693": true, "885": true, "882": true, "665": true,
	"666": true, "667": true, "960": true, "2648": true, "668": true, "798": true,
	"2008": true, "669": true, "670": true, "671": true, "672": true, "673": true,
	"674": true, "1211": true, "675": true, "874": true, "876": true, "875": true,
	"2561": true, "2597": true, "3031": true, "2932": true, "680": true,
}

// ValidSparte returns s trimmed when it is a known section number and ""
// otherwise. An empty section is allowed.
func ValidSparte(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !sparten[s] {
		log.Warn().Str("sparte", s).Msg("unknown booklooker section, leaving it empty")
		return ""
	}
	return s
}

// ConditionCode maps a condition to the import's grade 1 (best) to 4.
// Unknown conditions are graded 3.
func ConditionCode(c book.Condition) string {
	switch c {
	case book.ConditionNew, book.ConditionLikeNew:
		return "1"
	case book.ConditionVeryGood:
		return "2"
	case book.ConditionGood:
		return "3"
	case book.ConditionAcceptable:
		return "4"
	}
	return "3"
}

// Filename is the import file name of a record, also used to poll its status.
func Filename(rec *book.Record) string {
	return fmt.Sprintf("book_%d.txt", rec.ID)
}

// FormatRecord writes rec as one tab separated article row.
func FormatRecord(rec *book.Record) ([]byte, error) {
	description := DefaultDescription
	if strings.TrimSpace(rec.Description) != "" {
		description = rec.Description
	}

	orderNr := strconv.FormatInt(rec.ID, 10)
	if rec.ID == 0 {
		orderNr = "BK-" + time.Now().Format("20060102150405")
	}

	var year, pages, weight string
	if rec.Year != nil {
		year = strconv.Itoa(*rec.Year)
	}
	if rec.PageCount != nil {
		pages = strconv.Itoa(*rec.PageCount)
	}
	if rec.Weight != nil {
		weight = strconv.FormatFloat(*rec.Weight, 'f', -1, 64)
	}

	row := []string{
		ValidSparte(rec.Category),        // Sparten-Nr.
		strings.TrimSpace(rec.Author),    // Autor
		strings.TrimSpace(rec.Title),     // Titel
		strings.TrimSpace(rec.Publisher), // Verlag
		strings.TrimSpace(rec.Edition),   // Auflage
		year,                             // Jahr
		"",                               // Ort
		DefaultBinding,                   // Einband
		ConditionCode(rec.Condition),     // Zustand
		CleanDescription(description),    // Beschreibung
		defaultLanguage,                  // Sprache
		strings.TrimSpace(rec.ISBN),      // ISBN
		pages,                            // Seiten
		strings.TrimSpace(rec.Format),    // Format
		orderNr,                          // Bestell-Nr.
		weight,                           // Gewicht in g
		fmt.Sprintf("%.2f", rec.Price),   // Preis in EUR
		"",                               // unbenutzt
		"",                               // unbenutzt
		"",                               // Cover-URL
		"",                               // Stichwort
		"nein",                           // unbegrenzte Stückzahl
		"nein",                           // Neuware
		"nein",                           // Erstausgabe
		"nein",                           // signiert
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	w.UseCRLF = true
	if err := w.Write(row); err != nil {
		return nil, fmt.Errorf("failed to write article row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write article row: %w", err)
	}
	return buf.Bytes(), nil
}

type replacement struct {
	re   *regexp.Regexp
	with string
}

// Applied in order.
var descriptionRewrites = []replacement{
	{regexp.MustCompile(`\*\*|\*`), ""},
	{regexp.MustCompile(`(?s)eBay-Kategorien:.*$`), ""},
	{regexp.MustCompile(`Autor:`), "\nAutor:"},
	{regexp.MustCompile(`Verlagsjahr:`), "\nJahr:"},
	{regexp.MustCompile(`Zustandsanalyse:`), "\nZustand:"},
	{regexp.MustCompile(`- ([^:\n]+):`), "\n• $1:"},
	{regexp.MustCompile(`Zustandsbewertung:`), "\nGesamtzustand:"},
	{regexp.MustCompile(`Zusätzliche Informationen:`), "\nHinweis:"},
}

var multiSpace = regexp.MustCompile(`\s{2,}`)

// CleanDescription turns a listing description into the plain text the
// import expects: no markdown, no eBay sections, one heading per line and a
// trailing period.
func CleanDescription(text string) string {
	for _, r := range descriptionRewrites {
		text = r.re.ReplaceAllString(text, r.with)
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	text = strings.Join(lines, "\n")

	text = strings.ReplaceAll(text, `""`, "'")
	text = strings.ReplaceAll(text, ` "`, " ")
	text = strings.ReplaceAll(text, `" `, " ")
	text = multiSpace.ReplaceAllString(text, " ")

	text = strings.TrimRight(text, " \t\r\n")
	if !strings.HasSuffix(text, ".") {
		text += "."
	}
	return text
}
