package ingest

import "errors"

var (
	// ErrItemRepositoryRequired is returned when an item repository is not provided.
	ErrItemRepositoryRequired = errors.New("item repository required")

	// ErrIndexRequired is returned when a similarity index is not provided.
	ErrIndexRequired = errors.New("similarity index required")

	// ErrGatewayRequired is returned when a gateway is not provided.
	ErrGatewayRequired = errors.New("ingestion gateway required")

	// ErrSourceRequired is returned when a discovery source is not provided.
	ErrSourceRequired = errors.New("discovery source required")

	// ErrAlreadyRunning is returned when Start is called on a running loop.
	ErrAlreadyRunning = errors.New("loop already running")

	// ErrNotRunning is returned when Stop is called on a stopped loop.
	ErrNotRunning = errors.New("loop not running")
)
