package domain

// RoomName names a multicast group of connections: a user id for the
// personal room, or a conversation id for group delivery.
type RoomName string

func PersonalRoom(id UserID) RoomName { return RoomName(id) }

func ConversationRoom(id ConversationID) RoomName { return RoomName(id) }
