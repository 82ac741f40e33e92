package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harvesthub/catalog-engine/internal/budget"
	"github.com/harvesthub/catalog-engine/internal/ranking"
	"github.com/harvesthub/catalog-engine/model"
	"github.com/harvesthub/catalog-engine/services"
)

// SearchRequest is a prefix search over item names and keywords.
type SearchRequest struct {
	Prefix string `json:"prefix"`
	Limit  int    `json:"limit" binding:"gte=0"`
}

// RankRequest sorts the catalog by one field.
type RankRequest struct {
	Field     string `json:"field" binding:"required"`
	Order     string `json:"order" binding:"omitempty,oneof=asc desc"`
	Algorithm string `json:"algorithm" binding:"omitempty,oneof=merge quick"`
	Limit     int    `json:"limit" binding:"gte=0"`
}

// TopRequest asks for the best k items under a named criterion.
type TopRequest struct {
	Criterion string `json:"criterion" binding:"required"`
	K         int    `json:"k" binding:"gte=0"`
}

type PriceRangeRequest struct {
	Min   *float64 `json:"min" binding:"required,gte=0"`
	Max   *float64 `json:"max" binding:"required,gte=0"`
	Limit int      `json:"limit" binding:"gte=0"`
}

type NearestRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
	K         int      `json:"k" binding:"gte=0"`
}

type ReachableRequest struct {
	ItemID      string  `json:"item_id" binding:"required"`
	K           int     `json:"k" binding:"gte=0"`
	ThresholdKm float64 `json:"threshold_km" binding:"gte=0"`
}

type BudgetRequest struct {
	Budget  *float64 `json:"budget" binding:"required,gte=0"`
	ItemIDs []string `json:"item_ids,omitempty"`
}

type DurationRequest struct {
	ItemID    string            `json:"item_id" binding:"required"`
	Budget    *float64          `json:"budget" binding:"required,gte=0"`
	Discounts []budget.Discount `json:"discounts,omitempty"`
}

type ScheduleRequest struct {
	ItemID    string           `json:"item_id"`
	Intervals []model.Interval `json:"intervals" binding:"required"`
	Weighted  bool             `json:"weighted"`
}

type ConflictsRequest struct {
	Intervals []model.Interval `json:"intervals" binding:"required"`
	Resolve   bool             `json:"resolve"`
}

// SlotRequest asks for a free window. Duration uses Go duration syntax ("36h").
// Without existing bookings the item's bookings are read from the source.
type SlotRequest struct {
	ItemID   string           `json:"item_id"`
	Duration string           `json:"duration" binding:"required"`
	Existing []model.Interval `json:"existing,omitempty"`
	Now      *time.Time       `json:"now,omitempty"`
}

func bindRequest(c *gin.Context, req interface{}) bool {
	if result := ValidateJSONBinding(c, req); result.HasErrors() {
		SendValidationError(c, result)
		return false
	}
	return true
}

func (api *API) runQuery(c *gin.Context, q services.Query) {
	result, err := api.engine.Execute(c.Request.Context(), q)
	if err != nil {
		SendEngineError(c, "execute "+string(q.Kind())+" query", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SearchHandler handles prefix search requests.
// Request Body: SearchRequest
func (api *API) SearchHandler(c *gin.Context) {
	var req SearchRequest
	if !bindRequest(c, &req) {
		return
	}
	api.runQuery(c, services.PrefixQuery{Prefix: req.Prefix, Limit: req.Limit})
}

// RankHandler sorts the catalog by a field.
func (api *API) RankHandler(c *gin.Context) {
	var req RankRequest
	if !bindRequest(c, &req) {
		return
	}
	api.runQuery(c, services.SortQuery{
		Field:      req.Field,
		Descending: req.Order == "desc",
		Algorithm:  ranking.Algorithm(req.Algorithm),
		Limit:      req.Limit,
	})
}

// TopHandler returns the top k items for a criterion or one of its aliases.
func (api *API) TopHandler(c *gin.Context) {
	var req TopRequest
	if !bindRequest(c, &req) {
		return
	}
	criterion, err := ranking.ParseCriterion(req.Criterion)
	if err != nil {
		SendEngineError(c, "parse criterion", err)
		return
	}
	api.runQuery(c, services.TopKQuery{Criterion: criterion, K: req.K})
}

func (api *API) PriceRangeHandler(c *gin.Context) {
	var req PriceRangeRequest
	if !bindRequest(c, &req) {
		return
	}
	api.runQuery(c, services.PriceRangeQuery{Min: *req.Min, Max: *req.Max, Limit: req.Limit})
}

func (api *API) NearestHandler(c *gin.Context) {
	var req NearestRequest
	if !bindRequest(c, &req) {
		return
	}
	api.runQuery(c, services.NearestQuery{
		Origin: model.GeoPoint{Latitude: *req.Latitude, Longitude: *req.Longitude},
		K:      req.K,
	})
}

func (api *API) ReachableHandler(c *gin.Context) {
	var req ReachableRequest
	if !bindRequest(c, &req) {
		return
	}
	api.runQuery(c, services.ReachableQuery{ItemID: req.ItemID, K: req.K, ThresholdKm: req.ThresholdKm})
}

// BudgetHandler selects the most valuable set of items that fits a budget.
func (api *API) BudgetHandler(c *gin.Context) {
	var req BudgetRequest
	if !bindRequest(c, &req) {
		return
	}
	api.runQuery(c, services.BudgetQuery{Budget: *req.Budget, ItemIDs: req.ItemIDs})
}

func (api *API) DurationHandler(c *gin.Context) {
	var req DurationRequest
	if !bindRequest(c, &req) {
		return
	}
	api.runQuery(c, services.DurationQuery{ItemID: req.ItemID, Budget: *req.Budget, Discounts: req.Discounts})
}

func (api *API) ScheduleHandler(c *gin.Context) {
	var req ScheduleRequest
	if !bindRequest(c, &req) {
		return
	}
	api.runQuery(c, services.ScheduleQuery{ItemID: req.ItemID, Intervals: req.Intervals, Weighted: req.Weighted})
}

func (api *API) ConflictsHandler(c *gin.Context) {
	var req ConflictsRequest
	if !bindRequest(c, &req) {
		return
	}
	api.runQuery(c, services.ConflictQuery{Intervals: req.Intervals, Resolve: req.Resolve})
}

// SlotHandler proposes a booking window for an item.
func (api *API) SlotHandler(c *gin.Context) {
	var req SlotRequest
	if !bindRequest(c, &req) {
		return
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		result := &ValidationResult{Valid: true}
		result.AddError("duration", "Invalid duration '"+req.Duration+"': use a value such as 24h or 90m")
		SendValidationError(c, result)
		return
	}

	q := services.SlotQuery{ItemID: req.ItemID, Duration: duration, Existing: req.Existing}
	if req.Now != nil {
		q.Now = *req.Now
	}
	api.runQuery(c, q)
}
