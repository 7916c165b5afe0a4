package proposition

import "strings"

// OfferType classifies the content carried by an Offer.
type OfferType int

const (
	OfferTypeUnknown OfferType = iota
	OfferTypeJSON
	OfferTypeText
	OfferTypeHTML
	OfferTypeImage
)

// OfferTypeFrom maps a content format (MIME type) to an OfferType.
func OfferTypeFrom(format string) OfferType {
	f := strings.ToLower(strings.TrimSpace(format))
	switch {
	case f == "application/json":
		return OfferTypeJSON
	case f == "text/plain":
		return OfferTypeText
	case f == "text/html":
		return OfferTypeHTML
	case strings.HasPrefix(f, "image/"):
		return OfferTypeImage
	default:
		return OfferTypeUnknown
	}
}

// String returns the MIME type used when serializing the type back to event data.
// OfferTypeFrom(t.String()) == t for every type.
func (t OfferType) String() string {
	switch t {
	case OfferTypeJSON:
		return "application/json"
	case OfferTypeText:
		return "text/plain"
	case OfferTypeHTML:
		return "text/html"
	case OfferTypeImage:
		return "image/*"
	default:
		return ""
	}
}

// Name returns the upper-case type name, used for display.
func (t OfferType) Name() string {
	switch t {
	case OfferTypeJSON:
		return "JSON"
	case OfferTypeText:
		return "TEXT"
	case OfferTypeHTML:
		return "HTML"
	case OfferTypeImage:
		return "IMAGE"
	default:
		return "UNKNOWN"
	}
}
