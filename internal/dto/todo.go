package dto

// Record is the JSON form of an entity: its scalar fields keyed by column
// name. Nullable fields are null when unset.
type Record map[string]any

// ErrorResponse is the body of every 404 and 500 answer.
type ErrorResponse struct {
	Detail string `json:"detail" example:"Not Found"`
}

// TodoItemResponse documents the shape of an item Record.
type TodoItemResponse struct {
	ID          int64   `json:"id" example:"1"`
	GroupID     *int64  `json:"group_id" example:"1"`
	Title       string  `json:"title" example:"Buy bread"`
	Description *string `json:"description" example:"Check how much is left and provide some"`
}

// TodoGroupResponse documents the shape of a group Record.
type TodoGroupResponse struct {
	ID      int64   `json:"id" example:"1"`
	Name    string  `json:"name" example:"Daily"`
	Comment *string `json:"comment" example:"Daily todos"`
}
