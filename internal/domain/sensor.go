package domain

import "context"

// Publisher accepts readings for fan-out to connected viewers.
type Publisher interface {
	Publish(r Reading) error
}

// ReadingSource produces readings and forwards each one to a Publisher.
// Run blocks until ctx is cancelled or the source fails.
type ReadingSource interface {
	Run(ctx context.Context, pub Publisher) error
}

// StateStore keeps a copy of the last published reading outside the process.
type StateStore interface {
	Save(ctx context.Context, r Reading) error
	Load(ctx context.Context) (Reading, error)
}
