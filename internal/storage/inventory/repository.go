// Package inventory reads the cars collection with a redis read-through cache.
package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"sales-orchestrator/internal/common/database"
	"sales-orchestrator/internal/common/errors"
	"sales-orchestrator/internal/common/logger"
	"sales-orchestrator/internal/models"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "car:"

const selectVehicleColumns = `SELECT id, name, price, type, badge, img, year, featured, description, features FROM cars`

type Repository struct {
	db       *sql.DB
	cache    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

// NewRepository creates a repository. cache may be nil to disable caching.
func NewRepository(db *sql.DB, cache *redis.Client, cacheTTL time.Duration, log logger.Logger) *Repository {
	return &Repository{
		db:       db,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   log.WithFields(map[string]interface{}{"component": "inventory"}),
	}
}

// GetVehicle returns the car by id. A missing car is a VEHICLE_NOT_FOUND error.
func (r *Repository) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	if v, ok := r.fromCache(ctx, id); ok {
		return v, nil
	}

	row := r.db.QueryRowContext(ctx, selectVehicleColumns+` WHERE id = $1`, id)
	v, err := scanVehicle(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewVehicleNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("getVehicle", err)
	}

	r.toCache(ctx, v)
	return v, nil
}

// ListVehicles returns every car ordered by id. The cache is bypassed.
func (r *Repository) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx, selectVehicleColumns+` ORDER BY id`)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("listVehicles", err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("listVehicles", err)
		}
		vehicles = append(vehicles, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("listVehicles", err)
	}
	return vehicles, nil
}

// Invalidate drops the cached copy of a car after it was written.
func (r *Repository) Invalidate(ctx context.Context, id string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Del(ctx, cacheKeyPrefix+id).Err(); err != nil {
		r.logger.Warn("cache invalidation failed", map[string]interface{}{"vehicleId": id, "error": err})
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanVehicle(s scanner) (*models.Vehicle, error) {
	var (
		v           models.Vehicle
		badge, img  sql.NullString
		description sql.NullString
		year        sql.NullInt64
		featured    sql.NullBool
		features    pq.StringArray
	)

	if err := s.Scan(&v.ID, &v.Name, &v.Price, &v.Type, &badge, &img, &year, &featured, &description, &features); err != nil {
		return nil, err
	}

	v.Badge = badge.String
	v.Img = img.String
	v.Year = int(year.Int64)
	v.Featured = featured.Bool
	v.Description = description.String
	v.Features = []string(features)
	return &v, nil
}

func (r *Repository) fromCache(ctx context.Context, id string) (*models.Vehicle, bool) {
	if r.cache == nil {
		return nil, false
	}

	val, err := r.cache.Get(ctx, cacheKeyPrefix+id).Result()
	if err != nil {
		if !database.IsMiss(err) {
			r.logger.Warn("cache read failed", map[string]interface{}{"vehicleId": id, "error": err})
		}
		return nil, false
	}

	var v models.Vehicle
	if err := json.Unmarshal([]byte(val), &v); err != nil {
		r.logger.Warn("discarding corrupt cache entry", map[string]interface{}{"vehicleId": id, "error": err})
		return nil, false
	}
	return &v, true
}

func (r *Repository) toCache(ctx context.Context, v *models.Vehicle) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKeyPrefix+v.ID, data, r.cacheTTL).Err(); err != nil {
		r.logger.Warn("cache write failed", map[string]interface{}{"vehicleId": v.ID, "error": err})
	}
}
