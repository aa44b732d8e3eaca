package utils

import (
	"context"
	"errors"
	"reflect"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
)

// check if id exists, using ctx's garage_id in WHERE, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, garageId string, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, garageId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

// check if ALL ids exist, using ctx's garage_id in WHERE, return RecordNotFound error
func ValidateResourcesId[M any, ID comparable](ctx context.Context, garageId string, ids []ID) error {
	unqIds := UniqueSlice(ids)

	count, err := ResourceCountWhere[M](ctx, garageId, "id IN ?", unqIds)
	if err != nil {
		return err
	}
	if count != int64(len(unqIds)) {
		return ErrorRecordNotFound
	}

	return nil
}

func ValidateUnique[T any](ctx context.Context, garageId string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, garageId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, garageId, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}

// count records, using WHERE garage_id = ? AND $condition
// garage_id can be blank for admin user
func ResourceCountWhere[T any](ctx context.Context, garageId string, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if garageId != "" {
		dbCtx = dbCtx.Where("garage_id = ?", garageId)
	}
	dbCtx = dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
