package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"gorm.io/gorm"

	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/model"
)

// taskRow is the SQL shape of model.Task. "order" is reserved in SQL, hence sort_order.
type taskRow struct {
	ID        string `gorm:"primaryKey;size:24"`
	OwnerID   string `gorm:"size:24;not null;uniqueIndex:idx_tasks_owner_name;index:idx_tasks_owner_order"`
	Name      string `gorm:"not null;uniqueIndex:idx_tasks_owner_name"`
	DueDate   time.Time
	Status    string `gorm:"not null;default:incomplete"`
	Order     int    `gorm:"column:sort_order;not null;index:idx_tasks_owner_order"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (taskRow) TableName() string { return taskCollection }

func newTaskRow(t *model.Task) taskRow {
	return taskRow{
		ID:        t.ID.Hex(),
		OwnerID:   t.OwnerID.Hex(),
		Name:      t.Name,
		DueDate:   t.DueDate,
		Status:    string(t.Status),
		Order:     t.Order,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (r taskRow) toModel() (*model.Task, error) {
	id, err := bson.ObjectIDFromHex(r.ID)
	if err != nil {
		return nil, err
	}
	owner, err := bson.ObjectIDFromHex(r.OwnerID)
	if err != nil {
		return nil, err
	}

	return &model.Task{
		ID:        id,
		OwnerID:   owner,
		Name:      r.Name,
		DueDate:   r.DueDate.UTC(),
		Status:    model.TaskStatus(r.Status),
		Order:     r.Order,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}, nil
}

type taskGormRepository struct {
	db *gorm.DB
}

func NewTaskGormRepository(logger *zerolog.Logger, db *gorm.DB) TaskRepository {
	if err := db.AutoMigrate(&taskRow{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate tasks table")
	}

	return &taskGormRepository{db: db}
}

func (r *taskGormRepository) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	now := time.Now().UTC()
	task.ID = bson.NewObjectID()
	task.CreatedAt = now
	task.UpdatedAt = now

	row := newTaskRow(task)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		task.ID = bson.NilObjectID
		return nil, translateGormError(err)
	}

	return task, nil
}

func (r *taskGormRepository) GetTaskByName(ctx context.Context, ownerID, name string) (*model.Task, error) {
	return r.first(r.db.WithContext(ctx), "owner_id = ? AND name = ?", ownerID, name)
}

func (r *taskGormRepository) first(db *gorm.DB, query string, args ...any) (*model.Task, error) {
	var row taskRow
	if err := db.Where(query, args...).First(&row).Error; err != nil {
		return nil, translateGormError(err)
	}

	return row.toModel()
}

func (r *taskGormRepository) CountTasks(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&taskRow{}).Where("owner_id = ?", ownerID).Count(&count).Error

	return count, err
}

func (r *taskGormRepository) ListTasks(
	ctx context.Context,
	ownerID string,
	params ListTasksParams,
) ([]*model.Task, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("sort_order ASC")
	if params.Limit > 0 {
		query = query.Limit(int(params.Limit)).Offset(int(params.Offset))
	}

	var rows []taskRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	tasks := make([]*model.Task, 0, len(rows))
	for _, row := range rows {
		task, err := row.toModel()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

func (r *taskGormRepository) UpdateTask(
	ctx context.Context,
	ownerID, id string,
	params UpdateTaskParams,
) (*model.Task, error) {
	if params.empty() {
		return nil, errors.New("no task fields to update")
	}

	updateMap := map[string]any{}
	if params.Name != nil {
		updateMap["name"] = *params.Name
	}
	if params.DueDate != nil {
		updateMap["due_date"] = *params.DueDate
	}
	if params.Status != nil {
		updateMap["status"] = string(*params.Status)
	}
	updateMap["updated_at"] = time.Now().UTC()

	var task *model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&taskRow{}).Where("owner_id = ? AND id = ?", ownerID, id).Updates(updateMap)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		var err error
		task, err = r.first(tx, "owner_id = ? AND id = ?", ownerID, id)
		return err
	})
	if err != nil {
		return nil, translateGormError(err)
	}

	return task, nil
}

func (r *taskGormRepository) ReorderTasks(ctx context.Context, ownerID string, orders []TaskOrder) error {
	if len(orders) == 0 {
		return nil
	}

	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, o := range orders {
			result := tx.Model(&taskRow{}).
				Where("owner_id = ? AND id = ?", ownerID, o.ID).
				Updates(map[string]any{"sort_order": o.Order, "updated_at": now})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		return nil
	})

	return translateGormError(err)
}

func (r *taskGormRepository) DeleteTask(ctx context.Context, ownerID, id string) (*model.Task, error) {
	var task *model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		task, err = r.first(tx, "owner_id = ? AND id = ?", ownerID, id)
		if err != nil {
			return err
		}

		if err := tx.Where("owner_id = ? AND id = ?", ownerID, id).Delete(&taskRow{}).Error; err != nil {
			return err
		}

		return tx.Model(&taskRow{}).
			Where("owner_id = ? AND sort_order > ?", ownerID, task.Order).
			Updates(map[string]any{
				"sort_order": gorm.Expr("sort_order - ?", 1),
				"updated_at": time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return nil, translateGormError(err)
	}

	return task, nil
}
