package ebay

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/marketplace"
	"github.com/raine/bookrelist/internal/shipping"
)

const (
	// FallbackCategory is the generic books category.
	FallbackCategory = "267"
	// ConditionUsed is the only condition offered for antiquarian books.
	ConditionUsed = 7000
	// ErrorCodeCreditCard is returned by sandbox accounts without a card.
	ErrorCodeCreditCard = "10117"

	maxTitleLength  = 80
	shippingService = "DE_DHLPaket"
	sandboxPicture  = "https://ir.ebaystatic.com/pictures/aw/pics/stockphoto/Stock_Photo_1.jpg"
	notSpecified    = "Nicht angegeben"
)

var creditCardHint = strings.TrimSpace(dedent.Dedent(`
	Der eBay Sandbox-Account benötigt Kreditkarteninformationen.
	Bitte folgen Sie diesen Schritten:
	1. Melden Sie sich im eBay Seller Hub Sandbox an: https://signin.sandbox.ebay.de/ws/eBayISAPI.dll
	2. Gehen Sie zu den Kontoeinstellungen
	3. Hinterlegen Sie Kreditkarteninformationen für den Test-Account
	4. Versuchen Sie den Upload erneut
`))

const returnDescription = "Rückgabe innerhalb von 30 Tagen möglich. Das Buch muss im gleichen Zustand zurückgesendet werden."

var baseKeywords = []string{"antiquarisch", "antik", "gebraucht", "historisch"}

// Extra keywords added when the description mentions the trigger word.
var topicKeywords = []struct {
	trigger  string
	keywords []string
}{
	{"kinder", []string{"kinder", "jugend"}},
	{"theater", []string{"theater", "bühne"}},
}

// BestCategory scores categories by keyword hits in their name, plus two
// points for leaf categories, and returns the best one. Ties keep the first.
func BestCategory(categories []Category, description string) string {
	keywords := append([]string(nil), baseKeywords...)
	lower := strings.ToLower(description)
	for _, t := range topicKeywords {
		if strings.Contains(lower, t.trigger) {
			keywords = append(keywords, t.keywords...)
		}
	}

	best, bestScore := "", 0
	for _, cat := range categories {
		name := strings.ToLower(cat.CategoryName)
		score := 0
		for _, kw := range keywords {
			if strings.Contains(name, kw) {
				score++
			}
		}
		if cat.LeafCategory {
			score += 2
		}
		if score > bestScore {
			best, bestScore = cat.CategoryID, score
		}
	}
	if best == "" {
		return FallbackCategory
	}
	return best
}

type ListingOpts struct {
	PostalCode string
	// Sandbox listings get a stock picture since sandbox requires one.
	Sandbox bool
}

// BuildListing turns rec into a fixed price, good-till-cancelled listing.
// Shipping is the DHL parcel rate for the record's weight.
func BuildListing(rec *book.Record, categoryID string, opts ListingOpts) Item {
	postalCode := opts.PostalCode
	if postalCode == "" {
		postalCode = DefaultPostalCode
	}

	year := notSpecified
	if rec.Year != nil {
		year = strconv.Itoa(*rec.Year)
	}

	item := Item{
		Title:           truncateRunes(strings.TrimSpace(rec.Title), maxTitleLength),
		Description:     listingDescription(rec, year),
		CategoryID:      categoryID,
		StartPrice:      amount{CurrencyID: "EUR", Value: fmt.Sprintf("%.2f", rec.Price)},
		ConditionID:     ConditionUsed,
		Country:         "DE",
		Currency:        "EUR",
		DispatchTimeMax: 3,
		ListingDuration: "GTC",
		ListingType:     "FixedPriceItem",
		Location:        postalCode,
		PostalCode:      postalCode,
		Quantity:        1,
		Site:            "Germany",
		AutoPay:         true,
		ItemSpecifics:   itemSpecifics(rec, year),
		ShippingDetails: shippingDetails{
			ShippingType: "Flat",
			Options: []shippingServiceOption{{
				Priority:       1,
				Service:        shippingService,
				Cost:           amount{CurrencyID: "EUR", Value: fmt.Sprintf("%.2f", parcelRate(rec).Euros())},
				AdditionalCost: amount{CurrencyID: "EUR", Value: "0.00"},
			}},
		},
		ReturnPolicy: returnPolicy{
			ReturnsAcceptedOption:    "ReturnsAccepted",
			ReturnsWithinOption:      "Days_30",
			Description:              returnDescription,
			ShippingCostPaidByOption: "Buyer",
		},
	}
	if opts.Sandbox {
		item.PictureDetails = &pictureDetails{PictureURL: []string{sandboxPicture}}
	}
	return item
}

func parcelRate(rec *book.Record) shipping.Cents {
	opts := shipping.Calculate(rec.Weight, rec.Dimensions)
	if q, ok := opts.Find(shipping.DHL, shipping.RegionDE, shipping.ServiceParcel); ok {
		return q.Price
	}
	return shipping.FallbackPrice
}

// The XML encoder escapes the description.
func listingDescription(rec *book.Record, year string) string {
	publisher := rec.Publisher
	if publisher == "" {
		publisher = notSpecified
	}
	condition := string(rec.Condition)
	if name, ok := marketplace.GermanCondition(rec.Condition); ok {
		condition = name
	}
	text := fmt.Sprintf(strings.TrimSpace(dedent.Dedent(`
		%s

		Zustand: %s
		Verlag: %s
		Erscheinungsjahr: %s
	`)), strings.TrimSpace(rec.Description), condition, publisher, year)
	return strings.TrimSpace(text)
}

func itemSpecifics(rec *book.Record, year string) []nameValue {
	language := "Deutsch"
	if rec.Language != "" && rec.Language != "de" {
		language = rec.Language
	}
	format := rec.Format
	if format == "" {
		format = "Gebundene Ausgabe"
	}
	all := []nameValue{
		{"Format", format},
		{"Erscheinungsjahr", year},
		{"Sprache", language},
		{"Autor", rec.Author},
		{"Produktart", "Antiquarisches Buch"},
		{"Verlag", rec.Publisher},
		{"Genre", rec.Genre},
		{"ISBN", rec.ISBN},
		{"Original/Reproduktion", "Original"},
	}
	// eBay rejects empty values.
	out := all[:0]
	for _, nv := range all {
		if strings.TrimSpace(nv.Value) != "" {
			out = append(out, nv)
		}
	}
	return out
}

func (it Item) missingFields() []string {
	var missing []string
	if it.Title == "" {
		missing = append(missing, "Title")
	}
	if p, err := strconv.ParseFloat(it.StartPrice.Value, 64); err != nil || p <= 0 {
		missing = append(missing, "StartPrice")
	}
	if it.CategoryID == "" {
		missing = append(missing, "CategoryID")
	}
	if strings.TrimSpace(it.Description) == "" {
		missing = append(missing, "Description")
	}
	return missing
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
