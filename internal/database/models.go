package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the bun table model backing internal/user.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	IsActive     bool      `bun:"is_active,notnull,default:true"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Task is the bun table model backing internal/task.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID       uuid.UUID  `bun:"user_id,notnull,type:uuid"`
	Title        string     `bun:"title,notnull"`
	Description  *string    `bun:"description"`
	Completed    bool       `bun:"completed,notnull,default:false"`
	Priority     string     `bun:"priority,notnull,default:'medium'"`
	DueDate      *time.Time `bun:"due_date"`
	ReminderDate *time.Time `bun:"reminder_date"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}
