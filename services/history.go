package services

import "hydramind/models"

const DefaultHistoryLimit = 20

// HistoryBuffer keeps the most recent points in insertion order, dropping the
// oldest once the limit is reached. It is not safe for concurrent use; the
// dashboard store serializes access.
type HistoryBuffer struct {
	points []models.HistoryPoint
	limit  int
}

func NewHistoryBuffer(limit int) *HistoryBuffer {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryBuffer{
		points: make([]models.HistoryPoint, 0, limit),
		limit:  limit,
	}
}

func (h *HistoryBuffer) Append(point models.HistoryPoint) {
	if len(h.points) >= h.limit {
		// Shift in place so the backing array never grows past limit
		copy(h.points, h.points[1:])
		h.points = h.points[:len(h.points)-1]
	}
	h.points = append(h.points, point)
}

// Points returns a copy, oldest first
func (h *HistoryBuffer) Points() []models.HistoryPoint {
	result := make([]models.HistoryPoint, len(h.points))
	copy(result, h.points)
	return result
}

func (h *HistoryBuffer) Len() int {
	return len(h.points)
}

func (h *HistoryBuffer) Limit() int {
	return h.limit
}
