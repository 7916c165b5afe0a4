package proposition

// Item schemas understood by this client.
const (
	SchemaTargetHTML    = "https://ns.adobe.com/personalization/html-content-item"
	SchemaTargetJSON    = "https://ns.adobe.com/personalization/json-content-item"
	SchemaTargetDefault = "https://ns.adobe.com/personalization/default-content-item"

	SchemaOfferHTML  = "https://ns.adobe.com/experience/offer-management/content-component-html"
	SchemaOfferJSON  = "https://ns.adobe.com/experience/offer-management/content-component-json"
	SchemaOfferImage = "https://ns.adobe.com/experience/offer-management/content-component-imagelink"
	SchemaOfferText  = "https://ns.adobe.com/experience/offer-management/content-component-text"
)

// SupportedSchemas returns the schema list sent with every personalization query.
func SupportedSchemas() []string {
	return []string{
		SchemaTargetHTML,
		SchemaTargetJSON,
		SchemaTargetDefault,
		SchemaOfferHTML,
		SchemaOfferJSON,
		SchemaOfferImage,
		SchemaOfferText,
	}
}

// Event data keys of the proposition wire shape.
const (
	keyID           = "id"
	keyScope        = "scope"
	keyScopeDetails = "scopeDetails"
	keyItems        = "items"

	keyItemETag   = "etag"
	keyItemScore  = "score"
	keyItemSchema = "schema"
	keyItemMeta   = "meta"
	keyItemData   = "data"

	keyDataFormat          = "format"
	keyDataType            = "type"
	keyDataContent         = "content"
	keyDataDeliveryURL     = "deliveryURL"
	keyDataLanguage        = "language"
	keyDataCharacteristics = "characteristics"
)
