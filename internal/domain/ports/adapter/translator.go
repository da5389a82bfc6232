package adapter

// Translator resolves a message key to localized text.
// Unknown keys come back unchanged.
type Translator interface {
	T(key string, args ...interface{}) string
}

// Permissions decides who may open admin screens.
type Permissions interface {
	IsAdmin(telegramID int64) bool
}
