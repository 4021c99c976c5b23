package core

import "time"

// Role identifies which side of a conversation authored a message.
type Role string

const (
	RoleUser       Role = "user"
	RoleInfluencer Role = "influencer"
)

// MediaType classifies a chat attachment. GIFs collapse into image.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
)

// PaidState is the purchase badge carried by a single attachment. Empty means
// the item carries no badge at all.
type PaidState string

const (
	PaidNone        PaidState = ""
	PaidPurchased   PaidState = "purchased"
	PaidUnpurchased PaidState = "unpurchased"
)

// Attachment is one media item hanging off a message.
type Attachment struct {
	Type MediaType `json:"type"`
	URL  string    `json:"url"`
	Paid PaidState `json:"paid"`
}

// Message is one normalized chat turn. ID is content-addressed: identical
// semantic content always produces the identical id, so writes are idempotent.
type Message struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Time        string       `json:"time"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// PaymentType distinguishes a tip from a paid-content purchase.
type PaymentType string

const (
	PaymentTip      PaymentType = "tip"
	PaymentPurchase PaymentType = "purchase"
)

// ReadStatus reflects the read indicator on the source page.
type ReadStatus string

const (
	StatusRead    ReadStatus = "Read"
	StatusNotRead ReadStatus = "Not Read"
)

// PaidStatus reflects whether a monetizable event has settled.
type PaidStatus string

const (
	PaidStatusPaid    PaidStatus = "Paid"
	PaidStatusNotPaid PaidStatus = "Not Paid"
)

// Payment is one monetizable chat event. ID is always empty in the current
// payload contract; consumers key on (account, time), which a single
// extraction pass keeps unique.
type Payment struct {
	ID         string      `json:"id"`
	AccountID  string      `json:"account_id,omitempty"`
	UserID     string      `json:"user_id,omitempty"`
	Price      float64     `json:"price"`
	Time       string      `json:"time"`
	Status     ReadStatus  `json:"status"`
	PaidStatus PaidStatus  `json:"paidStatus"`
	Type       PaymentType `json:"type"`
	MediaTypes []MediaType `json:"mediaTypes"`
	VaultName  string      `json:"vaultName"`
	Content    string      `json:"content"`
}

// Vault is the lightweight profile/category record scraped alongside a thread.
type Vault struct {
	AccountID  string `json:"accountId"`
	Name       string `json:"name"`
	MediaCount int    `json:"mediaCount"`
}

// Subscriber is one row of the subscriber list page. SubDate and SubDuration
// are mutually exclusive: when the duration cell parsed as a calendar date the
// duration text is dropped.
type Subscriber struct {
	UserName    string     `json:"userName"`
	UserID      string     `json:"userId"`
	SubPrice    string     `json:"subPrice"`
	SubDuration string     `json:"subDuration,omitempty"`
	SubDate     *time.Time `json:"subDate,omitempty"`
}

// Thread is the full normalized result of one extraction pass over a chat
// document, ready for the storage sink and the UI state layer.
type Thread struct {
	AccountID      string    `json:"accountId"`
	AccountName    string    `json:"accountName"`
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
	CustomUsername string    `json:"customUsername,omitempty"`
	Messages       []Message `json:"messages"`
	Payments       []Payment `json:"payments"`
}
