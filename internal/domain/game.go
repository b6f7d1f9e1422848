package domain

// Game is a static descriptor loaded at startup.
type Game struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
}
