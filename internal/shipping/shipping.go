// Package shipping calculates parcel and book-rate postage for German carriers.
package shipping

import (
	"fmt"
	"math"
	"strconv"

	"github.com/raine/bookrelist/internal/book"
)

// Cents is an amount of euro cents.
type Cents int64

// Euros returns the amount in euros.
func (c Cents) Euros() float64 {
	return float64(c) / 100
}

// MarshalJSON renders the amount as a euro number with two decimals.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(c.Euros(), 'f', 2, 64)), nil
}

// UnmarshalJSON reads a euro number.
func (c *Cents) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	eur, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid euro amount %s: %w", b, err)
	}
	*c = FromEuros(eur)
	return nil
}

// FromEuros converts a euro amount to cents, rounding to the nearest cent.
func FromEuros(eur float64) Cents {
	return Cents(math.Round(eur * 100))
}

type Carrier string

const (
	DHL    Carrier = "DHL"
	Hermes Carrier = "Hermes"
)

type Region string

const (
	RegionDE  Region = "DE"
	RegionEU  Region = "EU"
	RegionINT Region = "INT"
)

type Service string

const (
	ServiceBookRate Service = "Büchersendung"
	ServiceParcel   Service = "Paket"
)

// FallbackPrice is used whenever no valid quote can be computed.
const FallbackPrice Cents = 500

// Book-rate limits.
const (
	bookRateMaxWeight = 2000
	bookRateMaxLength = 60
	bookRateMaxWidth  = 30
	bookRateMaxHeight = 15
)

type bracket struct {
	maxGrams int
	price    Cents
}

type tariff struct {
	carrier  Carrier
	region   Region
	service  Service
	brackets []bracket // ascending by maxGrams
}

var tariffs = []tariff{
	{DHL, RegionDE, ServiceBookRate, []bracket{{500, 200}, {1000, 240}, {2000, 320}}},
	{DHL, RegionDE, ServiceParcel, []bracket{{2000, 549}, {5000, 649}, {10000, 849}, {31500, 1249}}},
	{DHL, RegionEU, ServiceParcel, []bracket{{5000, 1589}, {10000, 1989}, {20000, 2989}}},
	{DHL, RegionINT, ServiceParcel, []bracket{{5000, 2999}, {10000, 4999}, {20000, 8999}}},
	{Hermes, RegionDE, ServiceParcel, []bracket{{2000, 450}, {5000, 550}, {10000, 750}, {25000, 1450}}},
	{Hermes, RegionEU, ServiceParcel, []bracket{{2000, 1299}, {5000, 1499}, {10000, 1899}, {20000, 2499}}},
	{Hermes, RegionINT, ServiceParcel, []bracket{{2000, 2499}, {5000, 3499}, {10000, 5499}, {20000, 9499}}},
}

// price returns the smallest bracket covering weight, or the largest one
// when the weight exceeds every ceiling.
func (t tariff) price(weight float64) Cents {
	for _, b := range t.brackets {
		if weight <= float64(b.maxGrams) {
			return b.price
		}
	}
	return t.brackets[len(t.brackets)-1].price
}

// Quote is the postage for one carrier, region and service.
type Quote struct {
	Carrier Carrier `json:"carrier"`
	Region  Region  `json:"region"`
	Service Service `json:"service"`
	Price   Cents   `json:"price"`
}

// Options are all quotes for a given parcel. When the weight is unusable,
// Error is set and FallbackPrice carries the flat rate.
type Options struct {
	Weight        float64 `json:"weight,omitempty"`
	Quotes        []Quote `json:"quotes,omitempty"`
	Error         string  `json:"error,omitempty"`
	FallbackPrice Cents   `json:"fallback_price,omitempty"`
}

// Calculate quotes every carrier, region and service for a parcel of the
// given weight in grams. Book rate is only offered when the weight and all
// three dimensions are within its limits.
func Calculate(weight *float64, dims *book.Dimensions) Options {
	if weight == nil || math.IsNaN(*weight) || math.IsInf(*weight, 0) || *weight <= 0 {
		return Options{Error: "invalid weight", FallbackPrice: FallbackPrice}
	}
	w := *weight

	bookRate := bookRateEligible(w, dims)
	opts := Options{Weight: w}
	for _, t := range tariffs {
		if t.service == ServiceBookRate && !bookRate {
			continue
		}
		opts.Quotes = append(opts.Quotes, Quote{
			Carrier: t.carrier,
			Region:  t.region,
			Service: t.service,
			Price:   t.price(w),
		})
	}
	return opts
}

func bookRateEligible(weight float64, dims *book.Dimensions) bool {
	if weight > bookRateMaxWeight || dims == nil {
		return false
	}
	for _, axis := range []float64{dims.Length, dims.Width, dims.Height} {
		if math.IsNaN(axis) || axis <= 0 {
			return false
		}
	}
	return dims.Length <= bookRateMaxLength && dims.Width <= bookRateMaxWidth && dims.Height <= bookRateMaxHeight
}

// Find returns the quote for the given carrier, region and service.
func (o Options) Find(c Carrier, r Region, s Service) (Quote, bool) {
	for _, q := range o.Quotes {
		if q.Carrier == c && q.Region == r && q.Service == s {
			return q, true
		}
	}
	return Quote{}, false
}

// ByCarrier groups the quotes as carrier -> region -> service -> price.
func (o Options) ByCarrier() map[Carrier]map[Region]map[Service]Cents {
	out := make(map[Carrier]map[Region]map[Service]Cents)
	for _, q := range o.Quotes {
		regions, ok := out[q.Carrier]
		if !ok {
			regions = make(map[Region]map[Service]Cents)
			out[q.Carrier] = regions
		}
		services, ok := regions[q.Region]
		if !ok {
			services = make(map[Service]Cents)
			regions[q.Region] = services
		}
		services[q.Service] = q.Price
	}
	return out
}

// CheapestDomestic returns the lowest German price over all carriers and
// services, or FallbackPrice when there is none.
func CheapestDomestic(o Options) Cents {
	cheapest := Cents(-1)
	for _, q := range o.Quotes {
		if q.Region != RegionDE {
			continue
		}
		if cheapest < 0 || q.Price < cheapest {
			cheapest = q.Price
		}
	}
	if cheapest < 0 {
		return FallbackPrice
	}
	return cheapest
}
