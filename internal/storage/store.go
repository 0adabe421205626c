package storage

import (
	"context"

	_ "github.com/mattn/go-sqlite3"
	"github.com/roman-kulish/marker-navigation/internal/flight"
)

// Store provides an interface for managing flight data storage operations.
// It handles flight sessions and per-tick control records in a thread-safe
// manner. All operations that write to the database should be considered
// atomic.
type Store interface {
	// CreateSession initializes a new flight session and returns its unique
	// identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - detectorType: Type of marker detector (e.g., "aruco", "apriltag")
	//   - deviceID: Configured device name for the detector
	//   - config: Optional detector configuration. Can be string, []byte, or
	//     JSON-serializable object
	//
	// Returns:
	//   - sessionID: Unique identifier for the created session
	//   - error: If session creation fails or context is cancelled
	CreateSession(ctx context.Context, detectorType, deviceID string, config any) (sessionID int64, err error)

	// StoreRecords saves a batch of per-tick control records for a session.
	// The whole batch is stored in a single atomic transaction.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - sessionID: ID of the session the records belong to
	//   - records: Control tick records in flight order
	//
	// Returns:
	//   - error: If storage fails or context is cancelled
	StoreRecords(ctx context.Context, sessionID int64, records []flight.Record) error

	// Session retrieves a specific flight session by its ID.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - id: Unique session identifier
	//
	// Returns:
	//   - session: Pointer to session data, nil if not found
	//   - error: If retrieval fails or context is cancelled
	Session(ctx context.Context, id int64) (session *flight.Session, err error)

	// Sessions returns all flight sessions stored in the database.
	// Results are ordered by start time in ascending order.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//
	// Returns:
	//   - sessions: Slice of pointers to session data
	//   - error: If retrieval fails or context is cancelled
	Sessions(ctx context.Context) (sessions []*flight.Session, err error)

	// Close releases all database connections and resources.
	// After Close is called, the store instance cannot be reused.
	// It is safe to call Close multiple times.
	//
	// Returns:
	//   - error: If closing connections fails
	Close() error
}
