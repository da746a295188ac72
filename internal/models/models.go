package models

import "time"

// Collection names in the document store
const (
	CollectionCart           = "cart"
	CollectionPaymentMethods = "payment_methods"
	CollectionOrders         = "orders"
	CollectionFavorites      = "favorites"
	CollectionJournals       = "journals"
	CollectionNotifications  = "notifications"
)

// PriceOption is one size/price pair of a catalog item
type PriceOption struct {
	Size  string `db:"size" json:"size"`
	Price Money  `json:"price"`
}

// CatalogItem represents a purchasable coffee in the static catalog
type CatalogItem struct {
	ID                string        `db:"id" json:"id"`
	Name              string        `db:"name" json:"name"`
	Type              string        `db:"type" json:"type"`
	Description       string        `db:"description" json:"description"`
	SpecialIngredient string        `db:"special_ingredient" json:"special_ingredient"`
	Ingredients       string        `db:"ingredients" json:"ingredients"`
	Roasted           string        `db:"roasted" json:"roasted"`
	ImageSquare       string        `db:"image_square" json:"image_square"`
	ImagePortrait     string        `db:"image_portrait" json:"image_portrait"`
	Prices            []PriceOption `db:"-" json:"prices"`
}

// CartItem is one cart line item: a catalog item at a chosen size and quantity.
// StoreID is assigned by the document store; the unit price is resolved at
// add time and never re-derived.
type CartItem struct {
	StoreID   string `bson:"-" json:"store_id"`
	UserID    string `bson:"user_id" json:"user_id"`
	CoffeeID  string `bson:"coffee_id" json:"coffee_id"`
	Name      string `bson:"name" json:"name"`
	ImageURI  string `bson:"image_uri" json:"image_uri"`
	Size      string `bson:"size" json:"size"`
	UnitPrice Money  `bson:"unit_price" json:"unit_price"`
	Quantity  int    `bson:"quantity" json:"quantity"`
}

// PaymentMethod is a stored card. Only the masked number is retained; the
// raw number and CVV are validated and discarded.
type PaymentMethod struct {
	StoreID          string `bson:"-" json:"id"`
	UserID           string `bson:"user_id" json:"user_id"`
	CardNumberMasked string `bson:"card_number_masked" json:"card_number_masked"`
	ExpiryDate       string `bson:"expiry_date" json:"expiry_date"`
	CardHolder       string `bson:"card_holder" json:"card_holder"`
	CreatedAt        string `bson:"created_at" json:"created_at"`
}

// CardInput is the raw card form submitted by a client
type CardInput struct {
	CardNumber string `json:"card_number"`
	ExpiryDate string `json:"expiry_date"`
	CardHolder string `json:"card_holder"`
	CVV        string `json:"cvv"`
}

// OrderItem is a line-item snapshot copied by value from the cart at
// confirmation time
type OrderItem struct {
	CoffeeID  string `bson:"coffee_id" json:"coffee_id"`
	Name      string `bson:"name" json:"name"`
	UnitPrice Money  `bson:"unit_price" json:"unit_price"`
	Quantity  int    `bson:"quantity" json:"quantity"`
	ImageURI  string `bson:"image_uri" json:"image_uri"`
}

// Order is immutable once created. PaymentMethodLabel is the masked card
// snapshotted at creation and does not change if the method is later
// edited or deleted.
type Order struct {
	StoreID            string      `bson:"-" json:"id"`
	UserID             string      `bson:"user_id" json:"user_id"`
	PaymentMethodID    string      `bson:"payment_method_id" json:"payment_method_id"`
	PaymentMethodLabel string      `bson:"payment_method" json:"payment_method"`
	Amount             Money       `bson:"amount" json:"amount"`
	Items              []OrderItem `bson:"items" json:"items"`
	Status             string      `bson:"status" json:"status"`
	Timestamp          string      `bson:"timestamp" json:"timestamp"`
}

// Order statuses
const (
	OrderStatusCompleted = "completed"
)

// Favorite marks a catalog item as a user favorite. The descriptive fields
// are copied from the catalog entry so the favorites list renders without
// a catalog lookup.
type Favorite struct {
	StoreID           string `bson:"-" json:"id"`
	UserID            string `bson:"user_id" json:"user_id"`
	CoffeeID          string `bson:"coffee_id" json:"coffee_id"`
	Name              string `bson:"name" json:"name"`
	ImageURI          string `bson:"image_uri" json:"image_uri"`
	SpecialIngredient string `bson:"special_ingredient" json:"special_ingredient"`
	Description       string `bson:"description" json:"description"`
	Type              string `bson:"type" json:"type"`
	Ingredients       string `bson:"ingredients" json:"ingredients"`
	Roasted           string `bson:"roasted" json:"roasted"`
}

// JournalEntry is one photo journal entry
type JournalEntry struct {
	StoreID  string `bson:"-" json:"id"`
	UserID   string `bson:"user_id" json:"user_id"`
	Title    string `bson:"title" json:"title"`
	Content  string `bson:"content" json:"content"`
	Date     string `bson:"date" json:"date"`
	ImageURI string `bson:"image_uri" json:"image_uri"`
}

// Notification is a per-user order confirmation produced by the worker
type Notification struct {
	StoreID   string `bson:"-" json:"id"`
	UserID    string `bson:"user_id" json:"user_id"`
	OrderID   string `bson:"order_id" json:"order_id"`
	Message   string `bson:"message" json:"message"`
	CreatedAt string `bson:"created_at" json:"created_at"`
}

// Timestamp returns the ISO-8601 form used for document timestamps
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
