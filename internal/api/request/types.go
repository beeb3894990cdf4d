package request

// RegisterRequest is the request body for creating an account
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateMeRequest is the request body for changing the display name
type UpdateMeRequest struct {
	DisplayName string `json:"display_name"`
}

// CreateGameRequest is the request body for scheduling a game
type CreateGameRequest struct {
	Date       string  `json:"date"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	MaxPlayers int     `json:"max_players"`
	// Price in euros
	Price    float64 `json:"price"`
	Location string  `json:"location,omitempty"`
}

// EnrollRequest is the request body for taking a position
type EnrollRequest struct {
	Position int `json:"position"`
}

// EnrollGuestRequest is the request body for enrolling a guest by name
type EnrollGuestRequest struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// TeamRequest is the request body for assigning a team or declaring a winner.
// An empty team clears the assignment.
type TeamRequest struct {
	Team string `json:"team"`
}

// PromoteRequest is the request body for granting the admin role
type PromoteRequest struct {
	Email string `json:"email"`
}
