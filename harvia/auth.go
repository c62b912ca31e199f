package harvia

import (
	"context"
	"errors"
	"net/http"
	"time"

	cognitosrp "github.com/alexrudd/cognito-srp/v4"
	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"golang.org/x/oauth2"
)

// cognitoAPI is the slice of the Cognito identity provider client the
// authenticator uses.
type cognitoAPI interface {
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, in *cip.RespondToAuthChallengeInput, optFns ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error)
}

// authenticator exchanges the account credentials for the backend's token
// triple and keeps the id token fresh. The first exchange is an SRP login;
// after that the refresh token is used and the password is never re-sent.
// Token caching, the expiry margin and refresh serialization all come from
// the oauth2 reuse source wrapping it: concurrent callers holding an
// expired token trigger exactly one exchange.
type authenticator struct {
	cfg        Config
	resolver   *endpointResolver
	httpClient *http.Client

	source oauth2.TokenSource

	// Mutated only inside Token, which the reuse source serializes.
	api          cognitoAPI
	poolID       string
	clientID     string
	refreshToken string
}

func newAuthenticator(cfg Config, resolver *endpointResolver, httpClient *http.Client) *authenticator {
	a := &authenticator{
		cfg:        cfg,
		resolver:   resolver,
		httpClient: httpClient,
	}
	a.source = oauth2.ReuseTokenSourceWithExpiry(nil, a, cfg.TokenMargin)
	return a
}

// IDToken returns an id token valid for at least the configured margin.
func (a *authenticator) IDToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := a.source.Token()
	if err != nil {
		tokenValid.Set(0)
		return "", err
	}
	id, _ := tok.Extra("id_token").(string)
	if id == "" {
		tokenValid.Set(0)
		return "", TransientAuthError{Op: "token", Err: errors.New("exchange returned no id token")}
	}
	return id, nil
}

// Token runs one credential exchange. Exchanges are detached from caller
// contexts; every HTTP call inside is bounded by the client's uniform
// timeout.
func (a *authenticator) Token() (*oauth2.Token, error) {
	ctx := context.Background()

	if err := a.ensureProvider(ctx); err != nil {
		return nil, err
	}

	if a.refreshToken != "" {
		tok, err := a.refresh(ctx)
		if err == nil {
			return tok, nil
		}
		var rejected AuthError
		if !errors.As(err, &rejected) {
			return nil, err
		}
		// Refresh token revoked or expired: fall back to a full login.
		a.refreshToken = ""
	}

	return a.login(ctx)
}

func (a *authenticator) ensureProvider(ctx context.Context) error {
	if a.api != nil && a.poolID != "" {
		return nil
	}
	ep, err := a.resolver.Resolve(ctx, EndpointUsers)
	if err != nil {
		return err
	}
	a.poolID = ep.UserPoolID
	a.clientID = ep.ClientID
	if a.api == nil {
		opts := cip.Options{
			Region:      a.cfg.Region,
			Credentials: aws.AnonymousCredentials{},
			HTTPClient:  a.httpClient,
			Retryer:     aws.NopRetryer{},
		}
		if a.cfg.CognitoEndpoint != "" {
			opts.BaseEndpoint = aws.String(a.cfg.CognitoEndpoint)
		}
		a.api = cip.New(opts)
	}
	return nil
}

func (a *authenticator) refresh(ctx context.Context) (*oauth2.Token, error) {
	out, err := a.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(a.clientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": a.refreshToken,
		},
	})
	if err != nil {
		authFailure.WithLabelValues("refresh").Inc()
		return nil, classifyAuth("refresh", err)
	}
	return a.tokenFromResult(out.AuthenticationResult, "refresh")
}

func (a *authenticator) login(ctx context.Context) (*oauth2.Token, error) {
	srp, err := cognitosrp.NewCognitoSRP(a.cfg.Username, a.cfg.Password, a.poolID, a.clientID, nil)
	if err != nil {
		authFailure.WithLabelValues("login").Inc()
		return nil, TransientAuthError{Op: "login", Err: err}
	}

	out, err := a.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserSrpAuth,
		ClientId:       aws.String(srp.GetClientId()),
		AuthParameters: srp.GetAuthParams(),
	})
	if err != nil {
		authFailure.WithLabelValues("login").Inc()
		return nil, classifyAuth("login", err)
	}

	result := out.AuthenticationResult
	if out.ChallengeName == types.ChallengeNameTypePasswordVerifier {
		responses, err := srp.PasswordVerifierChallenge(out.ChallengeParameters, time.Now())
		if err != nil {
			authFailure.WithLabelValues("login").Inc()
			return nil, TransientAuthError{Op: "login", Err: err}
		}
		challenge, err := a.api.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
			ChallengeName:      types.ChallengeNameTypePasswordVerifier,
			ChallengeResponses: responses,
			ClientId:           aws.String(srp.GetClientId()),
			Session:            out.Session,
		})
		if err != nil {
			authFailure.WithLabelValues("login").Inc()
			return nil, classifyAuth("login", err)
		}
		result = challenge.AuthenticationResult
	}

	return a.tokenFromResult(result, "login")
}

func (a *authenticator) tokenFromResult(result *types.AuthenticationResultType, flow string) (*oauth2.Token, error) {
	if result == nil || aws.ToString(result.IdToken) == "" {
		authFailure.WithLabelValues(flow).Inc()
		return nil, TransientAuthError{Op: flow, Err: errors.New("exchange returned no id token")}
	}

	// The refresh flow echoes no refresh token; keep the one we hold.
	if rt := aws.ToString(result.RefreshToken); rt != "" {
		a.refreshToken = rt
	}

	expiresIn := time.Duration(result.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}

	tok := &oauth2.Token{
		AccessToken:  aws.ToString(result.AccessToken),
		TokenType:    "Bearer",
		RefreshToken: a.refreshToken,
		Expiry:       time.Now().Add(expiresIn),
	}

	authSuccess.WithLabelValues(flow).Inc()
	tokenValid.Set(1)
	return tok.WithExtra(map[string]any{"id_token": aws.ToString(result.IdToken)}), nil
}

// classifyAuth separates "the provider said no" from "the provider was
// unreachable". Only the former is terminal.
func classifyAuth(op string, err error) error {
	var notAuthorized *types.NotAuthorizedException
	var userNotFound *types.UserNotFoundException
	if errors.As(err, &notAuthorized) || errors.As(err, &userNotFound) {
		return AuthError{Op: op, Err: err}
	}
	return TransientAuthError{Op: op, Err: err}
}
