package dto

// RecordQuery captures GET /collections/:collection query parameters.
type RecordQuery struct {
	OrderBy   string `form:"orderBy"`
	Direction string `form:"direction"`
}

// RecordIDResponse is returned by create and update.
type RecordIDResponse struct {
	ID string `json:"id"`
}

// MaterialPatch is the only accepted update shape for materials.
type MaterialPatch struct {
	FlagCount *int      `json:"flagCount,omitempty"`
	FlaggedBy *[]string `json:"flaggedBy,omitempty"`
}
