package admin

// Stats summarizes marketplace activity for the admin dashboard.
type Stats struct {
	TotalFarmers     int64 `json:"totalFarmers"`
	TotalBuyers      int64 `json:"totalBuyers"`
	TotalProducts    int64 `json:"totalProducts"`
	TotalOrders      int64 `json:"totalOrders"`
	PendingApprovals int64 `json:"pendingApprovals"`
}
