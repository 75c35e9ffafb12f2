package tcpserver

// TCPServerSession is the interface that must be implemented by each connection
// session. The server creates a session per connection and runs Handle in a
// goroutine; the session is responsible for reading, processing, and optionally
// sending data until Close is called.
type TCPServerSession interface {
	// ID returns the session's unique identifier assigned by the server.
	ID() uint32

	// Handle runs the session's main loop until the connection is closed.
	// The server unregisters the session when Handle returns.
	Handle()

	// Close closes the session and releases resources. It must be safe to
	// call multiple times and concurrently with Handle.
	//
	// Returns:
	//   - An error if closing failed
	Close() error

	// Send writes data to the connection. Implementations should be safe for
	// concurrent use, since Broadcast may call Send while Handle is running.
	//
	// Parameters:
	//   - data: The bytes to send
	//
	// Returns:
	//   - An error if the write failed
	Send(data []byte) error
}
