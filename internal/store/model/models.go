package model

import "gorm.io/datatypes"

type RunStatus string

const (
	RunStatusOK       RunStatus = "ok"
	RunStatusEmpty    RunStatus = "empty"
	RunStatusAnomaly  RunStatus = "anomaly"
	RunStatusRejected RunStatus = "rejected"
	RunStatusFailed   RunStatus = "failed"
)

// ArchiveModel indexes one raw snapshot payload stored on disk.
type ArchiveModel struct {
	ID            int64  `gorm:"column:id;primaryKey"`
	RunID         string `gorm:"column:run_id;index"`
	Path          string `gorm:"column:path;uniqueIndex"`
	Miners        int    `gorm:"column:miners"`
	Bytes         int64  `gorm:"column:bytes"`
	SHA256        string `gorm:"column:sha256"`
	FetchedAt     int64  `gorm:"column:fetched_at;index"`
	CreatedAtUnix int64  `gorm:"column:created_at"`
}

func (ArchiveModel) TableName() string { return "snapshot_archives" }

// RunModel summarises one ranking run.
type RunModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	RunID         string         `gorm:"column:run_id;uniqueIndex"`
	AsOf          int64          `gorm:"column:as_of;index"`
	Status        RunStatus      `gorm:"column:status"`
	Miners        int            `gorm:"column:miners"`
	Ranked        int            `gorm:"column:ranked"`
	Rejected      int            `gorm:"column:rejected"`
	DurationMs    int64          `gorm:"column:duration_ms"`
	Error         string         `gorm:"column:error"`
	RankedJSON    datatypes.JSON `gorm:"column:ranked_json;type:TEXT"`
	SignalsJSON   datatypes.JSON `gorm:"column:signals_json;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
}

func (RunModel) TableName() string { return "ranking_runs" }

// DepthModel is the last depth an account confirmed for an asset.
type DepthModel struct {
	ID          int64   `gorm:"column:id;primaryKey"`
	Account     string  `gorm:"column:account;uniqueIndex:idx_account_symbol,priority:1"`
	Symbol      string  `gorm:"column:symbol;uniqueIndex:idx_account_symbol,priority:2"`
	Depth       float64 `gorm:"column:depth"`
	ConfirmedAt int64   `gorm:"column:confirmed_at"`
}

func (DepthModel) TableName() string { return "account_asset_depths" }
