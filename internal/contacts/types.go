// Package contacts holds the contact data model and its PostgreSQL store.
package contacts

import (
	"fmt"
	"time"
)

// OwnerKind discriminates who a contact belongs to.
type OwnerKind string

const (
	// OwnerAccount marks a contact owned by an authenticated account.
	OwnerAccount OwnerKind = "account"
	// OwnerChannel marks a contact ingested through an unauthenticated bot
	// channel and not yet claimed by an account.
	OwnerChannel OwnerKind = "channel"
)

// Owner is the ownership of a contact: either an account or, for contacts
// created through a bot channel, the channel identity awaiting reconciliation.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	Ref  string    `json:"ref"`
}

// AccountOwner returns an Owner for an authenticated account.
func AccountOwner(accountID string) Owner {
	return Owner{Kind: OwnerAccount, Ref: accountID}
}

// ChannelOwner returns an Owner for an unclaimed bot-channel contact.
func ChannelOwner(channelID string) Owner {
	return Owner{Kind: OwnerChannel, Ref: channelID}
}

// Coordinates is a geographic point. A contact either has both values of a
// pair or neither; half-populated pairs never exist.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Contact is the persisted contact record. Optional text fields are empty
// strings when absent; optional dates are empty "YYYY-MM-DD" strings;
// coordinate pairs are nil when absent.
type Contact struct {
	ID               string       `json:"id"`
	Owner            Owner        `json:"owner"`
	Name             string       `json:"name"`
	Phone            string       `json:"phone,omitempty"`
	Email            string       `json:"email,omitempty"`
	Instagram        string       `json:"instagram,omitempty"`
	LinkedIn         string       `json:"linkedin,omitempty"`
	Website          string       `json:"website,omitempty"`
	LocationMet      string       `json:"location_met,omitempty"`
	LocationFrom     string       `json:"location_from,omitempty"`
	LocationMetGeo   *Coordinates `json:"location_met_geo,omitempty"`
	LocationFromGeo  *Coordinates `json:"location_from_geo,omitempty"`
	DateMet          string       `json:"date_met,omitempty"`
	Birthday         string       `json:"birthday,omitempty"`
	Context          string       `json:"context,omitempty"`
	RawContent       string       `json:"raw_content,omitempty"`
	SourceMessageRef string       `json:"source_message_ref,omitempty"`
	IsHidden         bool         `json:"is_hidden"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// CreateRequest carries a new contact. Name must survive sanitization;
// every other field is optional.
type CreateRequest struct {
	Owner            Owner        `json:"owner"`
	Name             string       `json:"name"`
	Phone            string       `json:"phone"`
	Email            string       `json:"email"`
	Instagram        string       `json:"instagram"`
	LinkedIn         string       `json:"linkedin"`
	Website          string       `json:"website"`
	LocationMet      string       `json:"location_met"`
	LocationFrom     string       `json:"location_from"`
	LocationMetGeo   *Coordinates `json:"location_met_geo"`
	LocationFromGeo  *Coordinates `json:"location_from_geo"`
	DateMet          string       `json:"date_met"`
	Birthday         string       `json:"birthday"`
	Context          string       `json:"context"`
	RawContent       string       `json:"raw_content"`
	SourceMessageRef string       `json:"source_message_ref"`
}

// UpdateRequest carries a partial interactive edit; nil fields are untouched.
type UpdateRequest struct {
	Name         *string `json:"name"`
	Phone        *string `json:"phone"`
	Email        *string `json:"email"`
	Instagram    *string `json:"instagram"`
	LinkedIn     *string `json:"linkedin"`
	Website      *string `json:"website"`
	LocationMet  *string `json:"location_met"`
	LocationFrom *string `json:"location_from"`
	DateMet      *string `json:"date_met"`
	Birthday     *string `json:"birthday"`
	Context      *string `json:"context"`
}

// FieldError reports a field-level validation failure on the interactive path.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
