package domain

// ConnectionID is the opaque identifier the transport assigns to one
// accepted connection. The relay never interprets it.
type ConnectionID string

// Binding is the registry value for a joined connection.
type Binding struct {
	Conn        ConnectionID
	DisplayName string
	RoomName    string
}

// Member is one entry of a room's membership listing.
type Member struct {
	Conn        ConnectionID
	DisplayName string
}
