package domain

import (
	"time"

	"github.com/google/uuid"

	"tenant-auth-plane/internal/platform/ids"
)

// Record is the tenant-scoped sample entity of the auth plane. Its table is
// governed by the row isolation policies; every business entity in the wider
// system carries the same tenant_id column and policy shape.
type Record struct {
	ID        uuid.UUID
	TenantID  ids.TenantID
	Name      string
	Payload   []byte
	CreatedAt time.Time
}
