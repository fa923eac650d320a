package conversation

import "sync"

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation. Stored turns are only ever user or
// assistant turns; system turns appear in prompts built from them.
type Turn struct {
	Role    Role
	Content string
}

// Conversation is the chronological log of turns for one session.
// The log grows without bound; readers take a window.
type Conversation struct {
	mu    sync.RWMutex
	turns []Turn
}

func New() *Conversation {
	return &Conversation{}
}

// Append adds one turn. Content is stored as given.
func (c *Conversation) Append(role Role, content string) {
	c.mu.Lock()
	c.turns = append(c.turns, Turn{Role: role, Content: content})
	c.mu.Unlock()
}

// Window returns a copy of the last n turns, oldest first.
func (c *Conversation) Window(n int) []Turn {
	if n <= 0 {
		return []Turn{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	start := len(c.turns) - n
	if start < 0 {
		start = 0
	}
	window := make([]Turn, len(c.turns)-start)
	copy(window, c.turns[start:])
	return window
}

// Clear empties the log.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.turns = nil
	c.mu.Unlock()
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}
