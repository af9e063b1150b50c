package token

// PatRecord is one minted personal access token as written to the output file.
type PatRecord struct {
	UserID     string `json:"user_id"`     // Server user ID the token was issued for
	TokenName  string `json:"token_name"`  // Generated client ID, never the username
	TokenValue string `json:"token_value"` // Secret, written in plaintext
}
