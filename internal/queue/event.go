// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into audit log lines.
package queue

// RecordQueueName is the durable queue carrying RecordReceivedEvent.
const RecordQueueName = "record.received"

// RecordReceivedEvent is published when the service accepts a health
// record.  It identifies the record without carrying its content so the
// audit trail never holds health data.
type RecordReceivedEvent struct {
	RecordID   string `json:"record_id"`
	OwnerID    string `json:"owner_id"`
	RecordType string `json:"record_type"`
	Title      string `json:"title"`
	Stored     bool   `json:"stored"`
	ReceivedAt string `json:"received_at"`
}
