package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ScoringTable struct {
	Id        int            `gorm:"primaryKey"`
	Name      string         `gorm:"not null"`
	StartsOn  time.Time      `gorm:"not null"`
	EndsOn    *time.Time     `gorm:"null"`
	Nodes     []*ScoringNode `gorm:"foreignKey:TableId;constraint:OnDelete:CASCADE"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type ScoringNode struct {
	Id                int     `gorm:"primaryKey"`
	TableId           int     `gorm:"not null;uniqueIndex:idx_node_table_code"`
	Name              string  `gorm:"not null"`
	Code              *string `gorm:"null;uniqueIndex:idx_node_table_code"`
	ParentId          *int    `gorm:"null"`
	SortOrder         int     `gorm:"not null;default:0"`
	Active            bool    `gorm:"not null;default:true"`
	HasFormula        bool    `gorm:"not null;default:false"`
	FormulaExpression *string `gorm:"null"`

	Items []*ScoringItem `gorm:"foreignKey:NodeId;constraint:OnDelete:CASCADE"`
}

type ScoringItem struct {
	Id           int              `gorm:"primaryKey"`
	NodeId       int              `gorm:"not null"`
	Description  string           `gorm:"not null"`
	Unit         string           `gorm:"not null"`
	Points       decimal.Decimal  `gorm:"type:numeric(10,2);not null"`
	HasMaxPoints bool             `gorm:"not null;default:false"`
	MaxPoints    *decimal.Decimal `gorm:"type:numeric(10,2);null"`
	FormulaKey   *string          `gorm:"null"`

	Node *ScoringNode `gorm:"foreignKey:NodeId"`
}

// Ceiling is the maximum awarded points accepted for a capped item.
func (i *ScoringItem) Ceiling() decimal.Decimal {
	if i.MaxPoints != nil {
		return *i.MaxPoints
	}
	return i.Points
}

type ScoringTableRepository struct {
	DB *gorm.DB
}

func NewScoringTableRepository(db *gorm.DB) *ScoringTableRepository {
	return &ScoringTableRepository{DB: db}
}

func (r *ScoringTableRepository) SaveTable(table *ScoringTable) (*ScoringTable, error) {
	result := r.DB.Save(table)
	if result.Error != nil {
		return nil, result.Error
	}
	return table, nil
}

func (r *ScoringTableRepository) GetTableById(tableId int) (*ScoringTable, error) {
	var table ScoringTable
	result := r.DB.Preload("Nodes.Items").First(&table, "id = ?", tableId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &table, nil
}

func (r *ScoringTableRepository) GetTables() ([]*ScoringTable, error) {
	var tables []*ScoringTable
	result := r.DB.Find(&tables)
	if result.Error != nil {
		return nil, result.Error
	}
	return tables, nil
}

// GetTableValidAt returns the table whose validity window covers the date.
func (r *ScoringTableRepository) GetTableValidAt(date time.Time) (*ScoringTable, error) {
	var table ScoringTable
	result := r.DB.Preload("Nodes.Items").
		Where("starts_on <= ? AND (ends_on IS NULL OR ends_on >= ?)", date, date).
		Order("starts_on DESC").
		First(&table)
	if result.Error != nil {
		return nil, result.Error
	}
	return &table, nil
}

func (r *ScoringTableRepository) DeleteTable(tableId int) error {
	result := r.DB.Delete(&ScoringTable{}, "id = ?", tableId)
	return result.Error
}

func (r *ScoringTableRepository) GetItemById(itemId int) (*ScoringItem, error) {
	var item ScoringItem
	result := r.DB.Preload("Node").First(&item, "id = ?", itemId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &item, nil
}

func (r *ScoringTableRepository) GetNodesForTable(tableId int) ([]*ScoringNode, error) {
	var nodes []*ScoringNode
	result := r.DB.Preload("Items").Find(&nodes, "table_id = ?", tableId)
	if result.Error != nil {
		return nil, result.Error
	}
	return nodes, nil
}
