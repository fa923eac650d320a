package chat

type ChatResponse struct {
	Response  string `json:"response"`
	Source    string `json:"source"`
	SessionID string `json:"session_id"`
}

type ClearResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func NewClearResponse() ClearResponse {
	return ClearResponse{Status: "success", Message: "Conversation history cleared"}
}
