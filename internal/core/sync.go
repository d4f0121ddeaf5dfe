package core

import "time"

// MergeSource names the endpoint a bulk upsert arrived through.
type MergeSource string

const (
	MergeFullSync    MergeSource = "sync"
	MergePendingSync MergeSource = "sync-pending"
)

// MergeEvent describes a completed bulk upsert on the server.
type MergeEvent struct {
	Source MergeSource `json:"source"`
	IDs    []string    `json:"ids"`
	At     time.Time   `json:"at"`
}
