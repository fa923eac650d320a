package chat

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Content string `json:"content" validate:"required,max=8000"`
}
