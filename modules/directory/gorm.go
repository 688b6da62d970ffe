package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/moderated-room/domain/room"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore implements Store on top of gorm.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// Open connects to the sqlite database at path.
// Schema migration happens in Migrate.
func Open(path string, debug bool) (*GormStore, error) {
	level := logger.Silent
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &GormStore{db: db}, nil
}

// NewGormStore wraps an existing gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the schema.
func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(&room.Room{}, &room.User{}, &room.Message{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateRoom saves a new room. A taken code yields ErrDuplicateCode.
func (s *GormStore) CreateRoom(ctx context.Context, r *room.Room) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

// FindRoomByCode retrieves a room by its normalized code.
func (s *GormStore) FindRoomByCode(ctx context.Context, code string) (*room.Room, error) {
	var r room.Room
	if err := s.db.WithContext(ctx).First(&r, "code = ?", code).Error; err != nil {
		return nil, notFound(err, "room")
	}
	return &r, nil
}

// FindRoomByID retrieves a room by its ID.
func (s *GormStore) FindRoomByID(ctx context.Context, id string) (*room.Room, error) {
	var r room.Room
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "room")
	}
	return &r, nil
}

// DeleteRoom deletes messages, then users, then the room in one transaction,
// so a failure leaves the room untouched.
func (s *GormStore) DeleteRoom(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", id).Delete(&room.Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete room messages: %w", err)
		}
		if err := tx.Where("room_id = ?", id).Delete(&room.User{}).Error; err != nil {
			return fmt.Errorf("failed to delete room users: %w", err)
		}
		result := tx.Delete(&room.Room{}, "id = ?", id)
		if err := result.Error; err != nil {
			return fmt.Errorf("failed to delete room: %w", err)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CreateUser saves a new user.
func (s *GormStore) CreateUser(ctx context.Context, u *room.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByID retrieves a user by its ID.
func (s *GormStore) FindUserByID(ctx context.Context, id string) (*room.User, error) {
	var u room.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

// FindUserByConnectionID retrieves the user currently bound to connID.
func (s *GormStore) FindUserByConnectionID(ctx context.Context, connID string) (*room.User, error) {
	if connID == "" {
		return nil, ErrNotFound
	}
	var u room.User
	if err := s.db.WithContext(ctx).First(&u, "connection_id = ?", connID).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &u, nil
}

// FindUsersByIDs returns the users that still exist, keyed by ID.
func (s *GormStore) FindUsersByIDs(ctx context.Context, ids []string) (map[string]*room.User, error) {
	found := make(map[string]*room.User, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	var users []*room.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	for _, u := range users {
		found[u.ID] = u
	}
	return found, nil
}

// FindUsersByRoomAndStatus lists users of a room, oldest first.
func (s *GormStore) FindUsersByRoomAndStatus(ctx context.Context, roomID string, status room.Status) ([]*room.User, error) {
	q := s.db.WithContext(ctx).Where("room_id = ?", roomID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var users []*room.User
	if err := q.Order("created_at asc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	return users, nil
}

// FindOnlineUsersByRoomAndStatus lists the online users of a room with the given status.
func (s *GormStore) FindOnlineUsersByRoomAndStatus(ctx context.Context, roomID string, status room.Status) ([]*room.User, error) {
	var users []*room.User
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND status = ? AND online = ?", roomID, status, true).
		Order("created_at asc").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find online users: %w", err)
	}
	return users, nil
}

// SetUserPresence writes the online flag and connection id together.
func (s *GormStore) SetUserPresence(ctx context.Context, userID, connID string) error {
	result := s.db.WithContext(ctx).Model(&room.User{}).Where("id = ?", userID).
		Updates(map[string]any{
			"online":        connID != "",
			"connection_id": connID,
		})
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ApproveUser moves the user to approved. Approving twice is harmless.
func (s *GormStore) ApproveUser(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&room.User{}).Where("id = ?", id).
		Update("status", room.StatusApproved)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to approve user: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user by ID.
func (s *GormStore) DeleteUser(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&room.User{}, "id = ?", id)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateMessage saves a new message.
func (s *GormStore) CreateMessage(ctx context.Context, m *room.Message) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// FindMessageByID retrieves a message by its ID.
func (s *GormStore) FindMessageByID(ctx context.Context, id string) (*room.Message, error) {
	var m room.Message
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "message")
	}
	return &m, nil
}

// FindMessagesByRoom lists a room's messages in creation order.
func (s *GormStore) FindMessagesByRoom(ctx context.Context, roomID string, status room.Status) ([]*room.Message, error) {
	q := s.db.WithContext(ctx).Where("room_id = ?", roomID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var messages []*room.Message
	if err := q.Order("created_at asc").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	return messages, nil
}

// ApproveMessage moves the message to approved. Approving twice is harmless.
func (s *GormStore) ApproveMessage(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&room.Message{}).Where("id = ?", id).
		Update("status", room.StatusApproved)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to approve message: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMessage removes a message by ID.
func (s *GormStore) DeleteMessage(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&room.Message{}, "id = ?", id)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMessagesBySender removes every message sent by senderID.
func (s *GormStore) DeleteMessagesBySender(ctx context.Context, senderID string) (int64, error) {
	result := s.db.WithContext(ctx).Where("sender_id = ?", senderID).Delete(&room.Message{})
	if err := result.Error; err != nil {
		return 0, fmt.Errorf("failed to delete messages by sender: %w", err)
	}
	return result.RowsAffected, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to find %s: %w", what, err)
}
