package room

import "time"

// Role gates which topics and snapshots a participant receives.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
	RoleBroadcast  Role = "broadcast"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperadmin, RoleBroadcast:
		return true
	}
	return false
}

// Privileged reports whether joining with r requires a credential.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleSuperadmin || r == RoleBroadcast
}

// Status is the moderation state of a user or message.
// It only ever moves from pending to approved.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved
}

// Room represents a moderated chat room.
type Room struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	Code      string    `gorm:"uniqueIndex;size:6;not null" json:"room_code"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CreatedBy string    `gorm:"size:50" json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for Room model.
func (Room) TableName() string {
	return "rooms"
}

// User is a participant of exactly one room.
// Online is only true while ConnectionID is set.
type User struct {
	ID           string    `gorm:"primarykey;size:36" json:"id"`
	Username     string    `gorm:"size:50;not null" json:"username"`
	Role         Role      `gorm:"size:16;not null" json:"role"`
	RoomID       string    `gorm:"size:36;index;not null" json:"room_id"`
	Status       Status    `gorm:"size:16;index;not null" json:"status"`
	Online       bool      `gorm:"not null;default:false" json:"online"`
	ConnectionID string    `gorm:"size:36;index" json:"connection_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the table name for User model.
func (User) TableName() string {
	return "users"
}

// Message is a chat message moving through moderation.
type Message struct {
	ID             string    `gorm:"primarykey;size:36" json:"id"`
	RoomID         string    `gorm:"size:36;index;not null" json:"room_id"`
	SenderID       string    `gorm:"size:36;index" json:"sender_id"`
	SenderUsername string    `gorm:"size:50" json:"sender_username"`
	Content        string    `gorm:"size:5000;not null" json:"content"`
	Status         Status    `gorm:"size:16;index;not null" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Sender is resolved at read time and may be nil once the sender is gone.
	Sender *User `gorm:"-" json:"sender,omitempty"`
}

// TableName returns the table name for Message model.
func (Message) TableName() string {
	return "messages"
}
