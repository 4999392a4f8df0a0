package ebay

import "encoding/xml"

const xmlns = "urn:ebay:apis:eBLBaseComponents"

type requesterCredentials struct {
	Token string `xml:"eBayAuthToken"`
}

// APIError is one entry of a Trading API Errors list.
type APIError struct {
	ShortMessage string `xml:"ShortMessage"`
	LongMessage  string `xml:"LongMessage"`
	ErrorCode    string `xml:"ErrorCode"`
	SeverityCode string `xml:"SeverityCode"`
}

// Message returns the most descriptive text of e.
func (e APIError) Message() string {
	if e.LongMessage != "" {
		return e.LongMessage
	}
	return e.ShortMessage
}

type baseResponse struct {
	Ack    string     `xml:"Ack"`
	Errors []APIError `xml:"Errors"`
}

// split separates errors from warnings.
func (r baseResponse) split() (errs, warnings []APIError) {
	for _, e := range r.Errors {
		if e.SeverityCode == "Warning" {
			warnings = append(warnings, e)
		} else {
			errs = append(errs, e)
		}
	}
	return errs, warnings
}

type getUserRequest struct {
	XMLName     xml.Name             `xml:"GetUserRequest"`
	Xmlns       string               `xml:"xmlns,attr"`
	Credentials requesterCredentials `xml:"RequesterCredentials"`
}

type getUserResponse struct {
	baseResponse
	User struct {
		UserID string `xml:"UserID"`
	} `xml:"User"`
}

type getCategoriesRequest struct {
	XMLName        xml.Name             `xml:"GetCategoriesRequest"`
	Xmlns          string               `xml:"xmlns,attr"`
	Credentials    requesterCredentials `xml:"RequesterCredentials"`
	DetailLevel    string               `xml:"DetailLevel"`
	CategorySiteID string               `xml:"CategorySiteID"`
	LevelLimit     int                  `xml:"LevelLimit"`
}

// Category is one entry of the site's category tree.
type Category struct {
	CategoryID   string `xml:"CategoryID"`
	CategoryName string `xml:"CategoryName"`
	LeafCategory bool   `xml:"LeafCategory"`
}

type getCategoriesResponse struct {
	baseResponse
	Categories []Category `xml:"CategoryArray>Category"`
}

type amount struct {
	CurrencyID string `xml:"currencyID,attr,omitempty"`
	Value      string `xml:",chardata"`
}

type nameValue struct {
	Name  string `xml:"Name"`
	Value string `xml:"Value"`
}

type shippingServiceOption struct {
	Priority       int    `xml:"ShippingServicePriority"`
	Service        string `xml:"ShippingService"`
	Cost           amount `xml:"ShippingServiceCost"`
	AdditionalCost amount `xml:"ShippingServiceAdditionalCost"`
}

type shippingDetails struct {
	ShippingType string                  `xml:"ShippingType"`
	Options      []shippingServiceOption `xml:"ShippingServiceOptions"`
}

type returnPolicy struct {
	ReturnsAcceptedOption    string `xml:"ReturnsAcceptedOption"`
	ReturnsWithinOption      string `xml:"ReturnsWithinOption"`
	Description              string `xml:"Description"`
	ShippingCostPaidByOption string `xml:"ShippingCostPaidByOption"`
}

type pictureDetails struct {
	PictureURL []string `xml:"PictureURL"`
}

// Item is the listing part of an AddFixedPriceItem request.
type Item struct {
	Title           string          `xml:"Title"`
	Description     string          `xml:"Description"`
	CategoryID      string          `xml:"PrimaryCategory>CategoryID"`
	StartPrice      amount          `xml:"StartPrice"`
	ConditionID     int             `xml:"ConditionID"`
	Country         string          `xml:"Country"`
	Currency        string          `xml:"Currency"`
	DispatchTimeMax int             `xml:"DispatchTimeMax"`
	ListingDuration string          `xml:"ListingDuration"`
	ListingType     string          `xml:"ListingType"`
	Location        string          `xml:"Location"`
	PostalCode      string          `xml:"PostalCode"`
	Quantity        int             `xml:"Quantity"`
	Site            string          `xml:"Site"`
	AutoPay         bool            `xml:"AutoPay"`
	ItemSpecifics   []nameValue     `xml:"ItemSpecifics>NameValueList"`
	ShippingDetails shippingDetails `xml:"ShippingDetails"`
	ReturnPolicy    returnPolicy    `xml:"ReturnPolicy"`
	PictureDetails  *pictureDetails `xml:"PictureDetails,omitempty"`
}

type addFixedPriceItemRequest struct {
	XMLName     xml.Name             `xml:"AddFixedPriceItemRequest"`
	Xmlns       string               `xml:"xmlns,attr"`
	Credentials requesterCredentials `xml:"RequesterCredentials"`
	Item        Item                 `xml:"Item"`
}

type addFixedPriceItemResponse struct {
	baseResponse
	ItemID string `xml:"ItemID"`
}

type getItemRequest struct {
	XMLName     xml.Name             `xml:"GetItemRequest"`
	Xmlns       string               `xml:"xmlns,attr"`
	Credentials requesterCredentials `xml:"RequesterCredentials"`
	ItemID      string               `xml:"ItemID"`
}

type getItemResponse struct {
	baseResponse
	Item struct {
		ItemID        string `xml:"ItemID"`
		ListingStatus string `xml:"SellingStatus>ListingStatus"`
	} `xml:"Item"`
}
