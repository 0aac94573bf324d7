package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// TaskStatus is the completion state of a task.
type TaskStatus string

const (
	TaskStatusIncomplete TaskStatus = "incomplete"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Task is a named, dated item in its owner's list. Order is the 1-based display
// rank; an owner's orders always form the contiguous sequence 1..N.
type Task struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	OwnerID   bson.ObjectID `bson:"owner_id"`
	Name      string        `bson:"name"`
	DueDate   time.Time     `bson:"due_date"`
	Status    TaskStatus    `bson:"status"`
	Order     int           `bson:"order"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}
