package publisher

// Publisher fans emitted notifications out to downstream consumers
type Publisher interface {
	// Publish publishes a notification payload keyed by its kind
	Publish(kind string, message []byte) error

	// TrimStream trims the stream to the configured maximum length
	TrimStream() error

	// Close closes the publisher connection
	Close() error
}
