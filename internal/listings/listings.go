// Package listings extracts comparable vehicle listings from marketplace
// HTML exports so the smart-offer engine can consume them as plain records.
//
// The expected shape is a table with one listing per row: year, make, model,
// trim, asking price, mileage. Rows that fail to parse are skipped with a
// log line rather than failing the whole document; listing exports are
// scraped data and partial results are still useful.
package listings

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/dealcraft/dealcalc/pkg/smartoffer"
)

var nonNumeric = regexp.MustCompile(`[^0-9.]`)

// Parser extracts listings from marketplace HTML.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a Parser.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// ParseFile reads and parses listings from an HTML file.
func (p *Parser) ParseFile(path string) ([]smartoffer.Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open listings file: %w", err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse extracts listings from HTML on r.
func (p *Parser) Parse(r io.Reader) ([]smartoffer.Listing, error) {
	doc, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listings HTML: %w", err)
	}

	rows, err := htmlquery.QueryAll(doc, "//table//tr[td]")
	if err != nil {
		return nil, fmt.Errorf("failed to query listing rows: %w", err)
	}

	var results []smartoffer.Listing
	for i, row := range rows {
		listing, err := p.parseRow(row)
		if err != nil {
			p.logger.Debug(fmt.Sprintf("skipping listing row %d: %v", i, err),
				zap.String("op", "listings.Parse"),
			)
			continue
		}
		results = append(results, listing)
	}

	p.logger.Debug(fmt.Sprintf("parsed %d listings from %d rows", len(results), len(rows)),
		zap.String("op", "listings.Parse"),
	)
	return results, nil
}

func (p *Parser) parseRow(row *html.Node) (smartoffer.Listing, error) {
	cells, err := htmlquery.QueryAll(row, "//td")
	if err != nil {
		return smartoffer.Listing{}, fmt.Errorf("failed to query cells: %w", err)
	}
	if len(cells) < 6 {
		return smartoffer.Listing{}, fmt.Errorf("expected 6 cells, found %d", len(cells))
	}

	text := func(n *html.Node) string {
		return strings.TrimSpace(htmlquery.InnerText(n))
	}

	year, err := strconv.Atoi(text(cells[0]))
	if err != nil {
		return smartoffer.Listing{}, fmt.Errorf("bad year %q", text(cells[0]))
	}
	price, err := parseAmount(text(cells[4]))
	if err != nil {
		return smartoffer.Listing{}, fmt.Errorf("bad price %q", text(cells[4]))
	}
	mileage, err := parseAmount(text(cells[5]))
	if err != nil {
		return smartoffer.Listing{}, fmt.Errorf("bad mileage %q", text(cells[5]))
	}

	return smartoffer.Listing{
		Year:        year,
		Make:        text(cells[1]),
		Model:       text(cells[2]),
		Trim:        text(cells[3]),
		AskingPrice: price,
		Mileage:     mileage,
	}, nil
}

// parseAmount strips currency symbols, separators, and unit suffixes before
// parsing ("$23,500" and "41,200 mi" both parse).
func parseAmount(s string) (float64, error) {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0, fmt.Errorf("no digits in %q", s)
	}
	return strconv.ParseFloat(cleaned, 64)
}
