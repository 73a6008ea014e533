package notify

// Handler receives batched directory change notifications. Paths are
// absolute. A single batch never mixes appearances and disappearances.
type Handler interface {
	FilesAppeared(paths []string)
	FilesDisappeared(paths []string)
}

// Notifier is an abstract filesystem-watch capability for one directory.
type Notifier interface {
	// Start begins delivering events to h. Events may be delivered from an
	// arbitrary goroutine.
	Start(h Handler) error
	// Close stops event delivery and releases watch resources.
	Close() error
}

// Nop is a Notifier that never delivers events. Used in tests and when
// watching is disabled.
type Nop struct{}

func (Nop) Start(Handler) error { return nil }
func (Nop) Close() error        { return nil }
