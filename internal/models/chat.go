package models

// ChatMessage is one turn of the conversation sent by the client.
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required,max=20000"`
}

// RoutineContext describes the routine the user is currently editing.
type RoutineContext struct {
	ID          string  `json:"id"`
	Title       string  `json:"title" binding:"max=200"`
	Description string  `json:"description" binding:"max=2000"`
	Blocks      []Block `json:"blocks" binding:"omitempty,max=100,dive"`
}

// AppContext carries ambient application state for the assistant.
type AppContext struct {
	Goals       []string `json:"goals" binding:"max=50"`
	Timezone    string   `json:"timezone"`
	Today       string   `json:"today"`
	CurrentView string   `json:"currentView"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	RoutineContext *RoutineContext `json:"routineContext"`
	AppContext     *AppContext     `json:"appContext"`
	Messages       []ChatMessage   `json:"messages" binding:"required,min=1,max=50,dive"`
}

// ToolCall is a function call requested by the chat model.
type ToolCall struct {
	Arguments map[string]any `json:"arguments"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
}

// ChatResponse is the data payload of a successful chat call.
type ChatResponse struct {
	Message         string     `json:"message"`
	SuggestedBlocks []Block    `json:"suggestedBlocks"`
	ToolCalls       []ToolCall `json:"toolCalls"`
}
