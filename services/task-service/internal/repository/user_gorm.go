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

// userRow is the SQL shape of model.User. Ids stay ObjectID hex strings so that
// both backends hand out the same identifiers.
type userRow struct {
	ID           string `gorm:"primaryKey;size:24"`
	Email        string `gorm:"not null;uniqueIndex:idx_users_email"`
	PasswordHash string `gorm:"not null"`
	OTPHash      string `gorm:"column:otp_hash"`
	Verified     bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRow) TableName() string { return userCollection }

func newUserRow(u *model.User) userRow {
	return userRow{
		ID:           u.ID.Hex(),
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		OTPHash:      u.OTPHash,
		Verified:     u.Verified,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r userRow) toModel() (*model.User, error) {
	id, err := bson.ObjectIDFromHex(r.ID)
	if err != nil {
		return nil, err
	}

	return &model.User{
		ID:           id,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		OTPHash:      r.OTPHash,
		Verified:     r.Verified,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}, nil
}

type userGormRepository struct {
	db *gorm.DB
}

func NewUserGormRepository(logger *zerolog.Logger, db *gorm.DB) UserRepository {
	if err := db.AutoMigrate(&userRow{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate users table")
	}

	return &userGormRepository{db: db}
}

func (r *userGormRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now().UTC()
	user.ID = bson.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now

	row := newUserRow(user)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		user.ID = bson.NilObjectID
		return nil, translateGormError(err)
	}

	return user, nil
}

func (r *userGormRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userGormRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *userGormRepository) first(ctx context.Context, query string, args ...any) (*model.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).Where(query, args...).First(&row).Error; err != nil {
		return nil, translateGormError(err)
	}

	return row.toModel()
}

func (r *userGormRepository) UpdateUser(
	ctx context.Context,
	id string,
	params UpdateUserParams,
) (*model.User, error) {
	updateMap := map[string]any{}
	if params.Verified != nil {
		updateMap["verified"] = *params.Verified
	}

	if len(updateMap) == 0 {
		return nil, errors.New("no user fields to update")
	}

	updateMap["updated_at"] = time.Now().UTC()

	var row userRow
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&userRow{}).Where("id = ?", id).Updates(updateMap)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		return tx.Where("id = ?", id).First(&row).Error
	})
	if err != nil {
		return nil, translateGormError(err)
	}

	return row.toModel()
}

func (r *userGormRepository) DeleteUser(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&userRow{})
	if result.Error != nil {
		return translateGormError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
