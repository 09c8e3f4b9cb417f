package storage

import (
	"context"
	"time"
)

// SnapshotRecord сохраняет периодический срез состояния модуля
// (riak status, host status) в виде JSON-payload.
type SnapshotRecord struct {
	Module  string
	Payload []byte
	TS      time.Time
}

// AuditEvent фиксирует действие, пришедшее через транспорт.
type AuditEvent struct {
	Subject   string
	Action    string
	Source    string
	Status    string
	RequestID string
	Payload   []byte
	TS        time.Time
}

// AuditQuery задает фильтры выборки аудита.
type AuditQuery struct {
	From    time.Time
	To      time.Time
	Subject string
	Limit   int
}

// Store описывает операции хранилища агента.
type Store interface {
	SaveSnapshot(ctx context.Context, rec SnapshotRecord) error
	LatestSnapshot(ctx context.Context, module string) (SnapshotRecord, error)
	SaveAudit(ctx context.Context, ev AuditEvent) error
	QueryAudit(ctx context.Context, q AuditQuery) ([]AuditEvent, error)
	Close() error
}
