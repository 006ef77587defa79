package model

// Chatbot is a tenant's configured assistant. Rows are administered outside
// this service; the backend only ever reads them.
type Chatbot struct {
	ID        string `json:"id"`
	APIKey    string `json:"api_key"`
	ModelName string `json:"model_name"`
}
