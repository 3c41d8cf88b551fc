package query

import (
	"fmt"

	"github.com/tile-microservice/internal/domain"
)

// Пороги политики упрощения
const (
	SimplifyBelowZoom      = 15
	ToleranceBelowZoom     = 13
	ClusterAtOrBelowZoom   = 13
	SnapGridSize           = 1e-5
	ToleranceDenominator   = 9500
	BaseClusterCellSize    = 0.0003
	ClusterCellSizePerZoom = 0.0002
)

type ClusterMode int

const (
	// ClusterDistinctGeometry - одна строка на каждую уникальную геометрию
	ClusterDistinctGeometry ClusterMode = iota + 1
	// ClusterGrid - одна строка на ячейку сетки
	ClusterGrid
)

type Simplification struct {
	// Tolerance == 0 означает только привязку к сетке без ST_Simplify
	Tolerance float64
	SnapGrid  float64
}

type Cluster struct {
	Mode     ClusterMode
	CellSize float64
}

// Plan - выбранная для зума стратегия упрощения и кластеризации
type Plan struct {
	Simplify *Simplification
	Cluster  *Cluster
}

// Policy выбирает упрощение и кластеризацию по зуму и типу геометрии
func Policy(zoom float64, kind domain.GeometryKind) Plan {
	var plan Plan

	if kind.IsAreal() && zoom < SimplifyBelowZoom {
		s := &Simplification{SnapGrid: SnapGridSize}
		if zoom < ToleranceBelowZoom {
			s.Tolerance = 1 / (zoom*zoom + ToleranceDenominator)
		}
		plan.Simplify = s
	}

	if zoom <= ClusterAtOrBelowZoom {
		if kind.IsAreal() {
			plan.Cluster = &Cluster{Mode: ClusterDistinctGeometry}
		} else {
			plan.Cluster = &Cluster{
				Mode:     ClusterGrid,
				CellSize: BaseClusterCellSize + (ClusterAtOrBelowZoom-zoom)*ClusterCellSizePerZoom,
			}
		}
	}

	return plan
}

// GeometryExpr оборачивает колонку геометрии в упрощение, если оно включено
func (p Plan) GeometryExpr(col string) string {
	if p.Simplify == nil {
		return col
	}
	expr := col
	if p.Simplify.Tolerance > 0 {
		expr = fmt.Sprintf("ST_Simplify(%s, %s, true)", col, formatFloat(p.Simplify.Tolerance))
	}
	return fmt.Sprintf("ST_SnapToGrid(%s, %s)", expr, formatFloat(p.Simplify.SnapGrid))
}

// DistinctExpr - опция DISTINCT ON для кластеризации или пустая строка
func (p Plan) DistinctExpr(col string) string {
	if p.Cluster == nil {
		return ""
	}
	switch p.Cluster.Mode {
	case ClusterDistinctGeometry:
		return fmt.Sprintf("DISTINCT ON (%s)", col)
	case ClusterGrid:
		return fmt.Sprintf("DISTINCT ON (ST_AsBinary(ST_SnapToGrid(%s, %s)))", col, formatFloat(p.Cluster.CellSize))
	}
	return ""
}
