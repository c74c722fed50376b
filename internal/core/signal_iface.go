package core

// ConnectionOptions is the static signaling configuration handed to the
// connection factory.
type ConnectionOptions struct {
	Domain     string
	MUC        string
	Endpoint   string
	ClientNode string
	P2P        bool
}

// RoomOptions are passed when a room object is created from a connection.
type RoomOptions struct {
	OpenBridgeChannel bool
}

// ConnectionFactory creates signaling connections. Every call returns a
// fresh, exclusively owned connection.
type ConnectionFactory interface {
	NewConnection(opts ConnectionOptions) (Connection, error)
}

// Connection is the signaling session. Callbacks may fire on any goroutine;
// handlers must be set before Connect.
type Connection interface {
	Connect()
	Disconnect()
	OnEstablished(func())
	OnFailed(func(error))
	OnDisconnected(func())
	// NewRoom creates a room object bound to this connection.
	NewRoom(roomID string, opts RoomOptions) (Room, error)
}

// Room is one conference on a connection. Owned by the session until the
// left event fires.
type Room interface {
	SetDisplayName(name string)
	// AddTrack publishes a local track to the room transport.
	AddTrack(track Track) error
	Join() error
	Leave() error
	OnJoined(func())
	OnLeft(func())
	OnTrackAdded(func(Track))
	OnTrackRemoved(func(Track))
}
