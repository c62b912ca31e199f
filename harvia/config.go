package harvia

import "time"

const (
	defaultBaseURL = "https://prod.myharvia-cloud.net"
	defaultRegion  = "eu-west-1"
	defaultTimeout = 15 * time.Second
	defaultMargin  = 60 * time.Second
)

// Config carries everything a Client needs. Username and Password are
// required; the rest defaults to the production cloud.
type Config struct {
	Username string
	Password string

	// BaseURL is the endpoint discovery root.
	BaseURL string
	// Region is the Cognito user pool region.
	Region string
	// Timeout bounds every HTTP call the client makes: discovery,
	// credential exchange and GraphQL alike.
	Timeout time.Duration
	// TokenMargin is how long before expiry a token is refreshed.
	TokenMargin time.Duration

	// CognitoEndpoint overrides the regional identity provider URL.
	CognitoEndpoint string
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Region == "" {
		c.Region = defaultRegion
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.TokenMargin <= 0 {
		c.TokenMargin = defaultMargin
	}
	return c
}

func (c Config) validate() error {
	if c.Username == "" {
		return ValidationError{Param: "username", Message: "required"}
	}
	if c.Password == "" {
		return ValidationError{Param: "password", Message: "required"}
	}
	return nil
}
