package api

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/bmbroch/payops/internal/report"
)

// ReportAPI serves creator and org balance queries
type ReportAPI struct {
	agg *report.Aggregator
}

// NewReportAPI creates a report API
func NewReportAPI(agg *report.Aggregator) *ReportAPI {
	return &ReportAPI{agg: agg}
}

// ListCreators handles payops.list_creators
func (a *ReportAPI) ListCreators(c *gin.Context, params json.RawMessage) (interface{}, error) {
	totals, err := a.agg.ListCreatorTotals(c.Request.Context())
	if err != nil {
		return nil, err
	}
	return gin.H{"creators": totals}, nil
}

// GetCreator handles payops.get_creator
func (a *ReportAPI) GetCreator(c *gin.Context, params json.RawMessage) (interface{}, error) {
	var req struct {
		CreatorID int64 `json:"creator_id"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, NewError(ErrInvalidParams, "invalid params")
	}
	if req.CreatorID <= 0 {
		return nil, NewError(ErrInvalidParams, fmt.Sprintf("invalid creator_id %d", req.CreatorID))
	}
	return a.agg.CreatorDetail(c.Request.Context(), req.CreatorID)
}

// OrgTotals handles payops.org_totals
func (a *ReportAPI) OrgTotals(c *gin.Context, params json.RawMessage) (interface{}, error) {
	return a.agg.OrgTotals(c.Request.Context())
}
