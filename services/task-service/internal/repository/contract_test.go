package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/model"
)

// The same behaviour is expected from every backend; each backend test file feeds
// fresh repositories into these helpers.

func testUserRepository(t *testing.T, users UserRepository) {
	ctx := context.Background()

	created, err := users.CreateUser(ctx, &model.User{
		Email:        "ada@example.com",
		PasswordHash: "pw-hash",
		OTPHash:      "otp-hash",
	})
	require.NoError(t, err)
	require.False(t, created.ID.IsZero())
	assert.False(t, created.Verified)

	_, err = users.CreateUser(ctx, &model.User{Email: "ada@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	byEmail, err := users.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "pw-hash", byEmail.PasswordHash)
	assert.Equal(t, "otp-hash", byEmail.OTPHash)

	_, err = users.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = users.GetUser(ctx, "not-an-id")
	assert.ErrorIs(t, err, ErrNotFound)

	verified := true
	updated, err := users.UpdateUser(ctx, created.ID.Hex(), UpdateUserParams{Verified: &verified})
	require.NoError(t, err)
	assert.True(t, updated.Verified)
	assert.Equal(t, "otp-hash", updated.OTPHash)

	_, err = users.UpdateUser(ctx, bson.NewObjectID().Hex(), UpdateUserParams{Verified: &verified})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = users.UpdateUser(ctx, created.ID.Hex(), UpdateUserParams{})
	assert.Error(t, err)

	require.NoError(t, users.DeleteUser(ctx, created.ID.Hex()))
	_, err = users.GetUser(ctx, created.ID.Hex())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, users.DeleteUser(ctx, created.ID.Hex()), ErrNotFound)
}

func seedTasks(t *testing.T, tasks TaskRepository, owner bson.ObjectID, names ...string) []*model.Task {
	t.Helper()

	due := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]*model.Task, 0, len(names))
	for i, name := range names {
		task, err := tasks.CreateTask(context.Background(), &model.Task{
			OwnerID: owner,
			Name:    name,
			DueDate: due,
			Status:  model.TaskStatusIncomplete,
			Order:   i + 1,
		})
		require.NoError(t, err)
		out = append(out, task)
	}

	return out
}

func orderedNames(t *testing.T, tasks TaskRepository, owner bson.ObjectID) []string {
	t.Helper()

	list, err := tasks.ListTasks(context.Background(), owner.Hex(), ListTasksParams{})
	require.NoError(t, err)

	names := make([]string, 0, len(list))
	for i, task := range list {
		assert.Equal(t, i+1, task.Order, "order must be dense")
		names = append(names, task.Name)
	}

	return names
}

func testTaskRepository(t *testing.T, tasks TaskRepository) {
	ctx := context.Background()
	owner := bson.NewObjectID()
	other := bson.NewObjectID()

	seeded := seedTasks(t, tasks, owner, "alpha", "bravo", "charlie", "delta")
	seedTasks(t, tasks, other, "alpha")

	t.Run("duplicate name for the same owner", func(t *testing.T) {
		_, err := tasks.CreateTask(ctx, &model.Task{OwnerID: owner, Name: "alpha", Order: 5})
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("count and list are owner scoped", func(t *testing.T) {
		count, err := tasks.CountTasks(ctx, owner.Hex())
		require.NoError(t, err)
		assert.EqualValues(t, 4, count)

		count, err = tasks.CountTasks(ctx, other.Hex())
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta"}, orderedNames(t, tasks, owner))
	})

	t.Run("windowed list", func(t *testing.T) {
		page, err := tasks.ListTasks(ctx, owner.Hex(), ListTasksParams{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "charlie", page[0].Name)
		assert.Equal(t, "delta", page[1].Name)
	})

	t.Run("get by name is owner scoped", func(t *testing.T) {
		got, err := tasks.GetTaskByName(ctx, owner.Hex(), "bravo")
		require.NoError(t, err)
		assert.Equal(t, seeded[1].ID, got.ID)
		assert.True(t, got.DueDate.Equal(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)))

		_, err = tasks.GetTaskByName(ctx, other.Hex(), "bravo")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = tasks.GetTaskByName(ctx, "zzz", "bravo")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update leaves order untouched", func(t *testing.T) {
		status := model.TaskStatusCompleted
		name := "bravo2"
		updated, err := tasks.UpdateTask(ctx, owner.Hex(), seeded[1].ID.Hex(), UpdateTaskParams{
			Name:   &name,
			Status: &status,
		})
		require.NoError(t, err)
		assert.Equal(t, "bravo2", updated.Name)
		assert.Equal(t, model.TaskStatusCompleted, updated.Status)
		assert.Equal(t, 2, updated.Order)

		taken := "alpha"
		_, err = tasks.UpdateTask(ctx, owner.Hex(), seeded[1].ID.Hex(), UpdateTaskParams{Name: &taken})
		assert.ErrorIs(t, err, ErrDuplicateKey)

		_, err = tasks.UpdateTask(ctx, other.Hex(), seeded[1].ID.Hex(), UpdateTaskParams{Status: &status})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("reorder", func(t *testing.T) {
		require.NoError(t, tasks.ReorderTasks(ctx, owner.Hex(), []TaskOrder{
			{ID: seeded[3].ID.Hex(), Order: 1},
			{ID: seeded[2].ID.Hex(), Order: 2},
			{ID: seeded[1].ID.Hex(), Order: 3},
			{ID: seeded[0].ID.Hex(), Order: 4},
		}))
		assert.Equal(t, []string{"delta", "charlie", "bravo2", "alpha"}, orderedNames(t, tasks, owner))

		err := tasks.ReorderTasks(ctx, other.Hex(), []TaskOrder{{ID: seeded[0].ID.Hex(), Order: 1}})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete compacts later orders", func(t *testing.T) {
		deleted, err := tasks.DeleteTask(ctx, owner.Hex(), seeded[2].ID.Hex())
		require.NoError(t, err)
		assert.Equal(t, "charlie", deleted.Name)
		assert.Equal(t, 2, deleted.Order)

		assert.Equal(t, []string{"delta", "bravo2", "alpha"}, orderedNames(t, tasks, owner))

		_, err = tasks.DeleteTask(ctx, owner.Hex(), seeded[2].ID.Hex())
		assert.ErrorIs(t, err, ErrNotFound)

		assert.Equal(t, []string{"alpha"}, orderedNames(t, tasks, other))
	})
}
