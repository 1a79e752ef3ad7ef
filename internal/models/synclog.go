package models

import "time"

type SyncAction string

const (
	ActionSendToCarrier  SyncAction = "SEND_TO_CARRIER"
	ActionStatusSync     SyncAction = "STATUS_SYNC"
	ActionCarrierWebhook SyncAction = "CARRIER_WEBHOOK"
	ActionSheetsSync     SyncAction = "SHEETS_SYNC"
	ActionNotify         SyncAction = "NOTIFY"
)

type SyncResult string

const (
	SyncSuccess SyncResult = "SUCCESS"
	SyncFailure SyncResult = "FAILURE"
)

// SyncLog is an append-only audit row for one external-system interaction
// attempt. Rows are never updated or deleted.
type SyncLog struct {
	ID        int64      `json:"id"`
	OrderID   *int64     `json:"order_id"`
	Action    SyncAction `json:"action"`
	Result    SyncResult `json:"result"`
	Detail    string     `json:"detail"`
	CreatedAt time.Time  `json:"created_at"`
}
