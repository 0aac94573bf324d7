package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/model"
)

const taskCollection = "tasks"

type taskMongoRepository struct {
	db *mongo.Database
}

func NewTaskMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) TaskRepository {
	collection := db.Collection(taskCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "order", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create task indexes")
	}

	return &taskMongoRepository{db: db}
}

func (r *taskMongoRepository) collection() *mongo.Collection {
	return r.db.Collection(taskCollection)
}

func (r *taskMongoRepository) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	result, err := r.collection().InsertOne(ctx, task)
	if err != nil {
		return nil, translateMongoError(err)
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		task.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return task, nil
}

func (r *taskMongoRepository) GetTaskByName(ctx context.Context, ownerID, name string) (*model.Task, error) {
	owner, err := bson.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, ErrNotFound
	}

	return r.findOne(ctx, bson.M{"owner_id": owner, "name": name})
}

func (r *taskMongoRepository) findOne(ctx context.Context, filter bson.M) (*model.Task, error) {
	result := r.collection().FindOne(ctx, filter)
	if result.Err() != nil {
		return nil, translateMongoError(result.Err())
	}

	var task model.Task
	if err := result.Decode(&task); err != nil {
		return nil, err
	}

	return &task, nil
}

func (r *taskMongoRepository) CountTasks(ctx context.Context, ownerID string) (int64, error) {
	owner, err := bson.ObjectIDFromHex(ownerID)
	if err != nil {
		return 0, nil
	}

	return r.collection().CountDocuments(ctx, bson.M{"owner_id": owner})
}

func (r *taskMongoRepository) ListTasks(
	ctx context.Context,
	ownerID string,
	params ListTasksParams,
) ([]*model.Task, error) {
	owner, err := bson.ObjectIDFromHex(ownerID)
	if err != nil {
		return []*model.Task{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})
	if params.Limit > 0 {
		opts.SetLimit(params.Limit)
	}
	if params.Offset > 0 {
		opts.SetSkip(params.Offset)
	}

	cursor, err := r.collection().Find(ctx, bson.M{"owner_id": owner}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tasks := []*model.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *taskMongoRepository) UpdateTask(
	ctx context.Context,
	ownerID, id string,
	params UpdateTaskParams,
) (*model.Task, error) {
	filter, err := taskFilter(ownerID, id)
	if err != nil {
		return nil, err
	}

	if params.empty() {
		return nil, errors.New("no task fields to update")
	}

	updateMap := bson.M{}
	if params.Name != nil {
		updateMap["name"] = *params.Name
	}
	if params.DueDate != nil {
		updateMap["due_date"] = *params.DueDate
	}
	if params.Status != nil {
		updateMap["status"] = *params.Status
	}
	updateMap["updated_at"] = time.Now().UTC()

	result := r.collection().FindOneAndUpdate(
		ctx,
		filter,
		bson.M{"$set": updateMap},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return nil, translateMongoError(result.Err())
	}

	var task model.Task
	if err := result.Decode(&task); err != nil {
		return nil, err
	}

	return &task, nil
}

func (r *taskMongoRepository) ReorderTasks(ctx context.Context, ownerID string, orders []TaskOrder) error {
	if len(orders) == 0 {
		return nil
	}

	owner, err := bson.ObjectIDFromHex(ownerID)
	if err != nil {
		return ErrNotFound
	}

	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(orders))
	for _, o := range orders {
		id, err := bson.ObjectIDFromHex(o.ID)
		if err != nil {
			return ErrNotFound
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id, "owner_id": owner}).
			SetUpdate(bson.M{"$set": bson.M{"order": o.Order, "updated_at": now}}))
	}

	result, err := r.collection().BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return err
	}
	if result.MatchedCount != int64(len(orders)) {
		return ErrNotFound
	}

	return nil
}

// illegalOperationCode is what a standalone server answers when asked to start a
// transaction.
const illegalOperationCode = 20

func (r *taskMongoRepository) DeleteTask(ctx context.Context, ownerID, id string) (*model.Task, error) {
	filter, err := taskFilter(ownerID, id)
	if err != nil {
		return nil, err
	}

	session, err := r.db.Client().StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return r.deleteAndCompact(ctx, filter)
	})
	if err != nil {
		var serverErr mongo.ServerError
		if errors.As(err, &serverErr) && serverErr.HasErrorCode(illegalOperationCode) {
			return r.deleteAndCompactWithRestore(ctx, filter)
		}
		return nil, translateMongoError(err)
	}

	return result.(*model.Task), nil
}

func (r *taskMongoRepository) deleteAndCompact(ctx context.Context, filter bson.M) (*model.Task, error) {
	result := r.collection().FindOneAndDelete(ctx, filter)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var task model.Task
	if err := result.Decode(&task); err != nil {
		return nil, err
	}

	if err := r.shiftOrdersAfter(ctx, task.OwnerID, task.Order); err != nil {
		return nil, err
	}

	return &task, nil
}

// deleteAndCompactWithRestore is used on deployments without transactions: a failed
// compaction puts the deleted task back. An UpdateMany that fails halfway can still
// leave some orders shifted.
func (r *taskMongoRepository) deleteAndCompactWithRestore(ctx context.Context, filter bson.M) (*model.Task, error) {
	result := r.collection().FindOneAndDelete(ctx, filter)
	if result.Err() != nil {
		return nil, translateMongoError(result.Err())
	}

	var task model.Task
	if err := result.Decode(&task); err != nil {
		return nil, err
	}

	if err := r.shiftOrdersAfter(ctx, task.OwnerID, task.Order); err != nil {
		if _, restoreErr := r.collection().InsertOne(context.WithoutCancel(ctx), &task); restoreErr != nil {
			return nil, errors.Join(err, fmt.Errorf("restore deleted task: %w", restoreErr))
		}
		return nil, err
	}

	return &task, nil
}

func (r *taskMongoRepository) shiftOrdersAfter(ctx context.Context, owner bson.ObjectID, order int) error {
	_, err := r.collection().UpdateMany(
		ctx,
		bson.M{"owner_id": owner, "order": bson.M{"$gt": order}},
		bson.M{
			"$inc": bson.M{"order": -1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)

	return err
}

func taskFilter(ownerID, id string) (bson.M, error) {
	owner, err := bson.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, ErrNotFound
	}
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	return bson.M{"_id": objectID, "owner_id": owner}, nil
}
