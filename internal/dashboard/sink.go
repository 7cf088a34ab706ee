package dashboard

import (
	"context"
)

// Sink receives every snapshot a cycle produces. Publish failures are logged
// and never stop polling.
type Sink interface {
	Name() string
	Publish(ctx context.Context, snapshot *Snapshot) error
}
