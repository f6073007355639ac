package auth

// Known OAuth scopes accepted by the extension.
const (
	ScopeParametersRead  = "flexurl:read"
	ScopeParametersWrite = "flexurl:write"
	ScopeRequestsMutate  = "flexurl:mutate"
)
