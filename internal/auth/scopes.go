package auth

// Known OAuth scopes used by the training-load endpoints.
const (
	ScopeTrainingRead  = "training:read"
	ScopeTrainingWrite = "training:write"
)
