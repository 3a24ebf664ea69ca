package model

// HealthRecord is a single health record as exchanged with clients and
// kept by the record stores.  ID is optional on input and always set on
// records returned by a store.  Date is free text; no format is enforced.
//
// Fields:
//
//	ID         – record address (nil until a store assigns one).
//	OwnerID    – identifier of the user that owns the record.
//	RecordType – record category, e.g. "bloodwork".
//	Title      – short human readable title.
//	Content    – free-text body.
//	Date       – date of the record as supplied by the client.
type HealthRecord struct {
	ID         *string `json:"id"`
	OwnerID    string  `json:"owner_id"`
	RecordType string  `json:"record_type"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Date       string  `json:"date"`
}

// WithID returns a copy of r whose ID is set to id.
func (r HealthRecord) WithID(id string) HealthRecord {
	r.ID = &id
	return r
}

// IDString returns the record ID or "" when unset.
func (r HealthRecord) IDString() string {
	if r.ID == nil {
		return ""
	}
	return *r.ID
}

// Receipt is returned by a store after accepting a record.  Stored is
// false when the backend only acknowledged the record without keeping it.
type Receipt struct {
	ID     string
	Stored bool
}
