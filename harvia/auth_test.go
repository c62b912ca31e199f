package harvia

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"golang.org/x/oauth2"
)

type fakeCognito struct {
	mu       sync.Mutex
	inputs   []*cip.InitiateAuthInput
	initiate func(in *cip.InitiateAuthInput) (*cip.InitiateAuthOutput, error)
	respond  func(in *cip.RespondToAuthChallengeInput) (*cip.RespondToAuthChallengeOutput, error)
}

func (f *fakeCognito) InitiateAuth(_ context.Context, in *cip.InitiateAuthInput, _ ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()
	return f.initiate(in)
}

func (f *fakeCognito) RespondToAuthChallenge(_ context.Context, in *cip.RespondToAuthChallengeInput, _ ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error) {
	if f.respond == nil {
		return nil, errors.New("unexpected challenge response")
	}
	return f.respond(in)
}

func (f *fakeCognito) flows() []types.AuthFlowType {
	f.mu.Lock()
	defer f.mu.Unlock()
	flows := make([]types.AuthFlowType, len(f.inputs))
	for i, in := range f.inputs {
		flows[i] = in.AuthFlow
	}
	return flows
}

func authResult(suffix string, withRefresh bool, expiresIn int32) *types.AuthenticationResultType {
	result := &types.AuthenticationResultType{
		AccessToken: aws.String("access-" + suffix),
		IdToken:     aws.String("id-" + suffix),
		TokenType:   aws.String("Bearer"),
		ExpiresIn:   expiresIn,
	}
	if withRefresh {
		result.RefreshToken = aws.String("refresh-" + suffix)
	}
	return result
}

func newTestAuthenticator(api cognitoAPI, margin time.Duration) *authenticator {
	cfg := Config{
		Username:    "user@example.com",
		Password:    "hunter2",
		TokenMargin: margin,
	}.withDefaults()
	a := &authenticator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Second},
		api:        api,
		poolID:     "eu-west-1_TestPool",
		clientID:   "client-1234",
	}
	a.source = oauth2.ReuseTokenSourceWithExpiry(nil, a, cfg.TokenMargin)
	return a
}

func TestLoginSRPChallenge(t *testing.T) {
	secretBlock := base64.StdEncoding.EncodeToString([]byte("secret-block-bytes"))
	fake := &fakeCognito{}
	fake.initiate = func(in *cip.InitiateAuthInput) (*cip.InitiateAuthOutput, error) {
		if in.AuthFlow != types.AuthFlowTypeUserSrpAuth {
			t.Fatalf("unexpected auth flow: %s", in.AuthFlow)
		}
		if in.AuthParameters["SRP_A"] == "" || in.AuthParameters["USERNAME"] != "user@example.com" {
			t.Fatalf("unexpected auth parameters: %v", in.AuthParameters)
		}
		return &cip.InitiateAuthOutput{
			ChallengeName: types.ChallengeNameTypePasswordVerifier,
			ChallengeParameters: map[string]string{
				"USERNAME":        "internal-user-1",
				"USER_ID_FOR_SRP": "internal-user-1",
				"SRP_B":           strings.Repeat("9badf00d", 32),
				"SALT":            "deadbeefcafe1234",
				"SECRET_BLOCK":    secretBlock,
			},
			Session: aws.String("sess-1"),
		}, nil
	}
	fake.respond = func(in *cip.RespondToAuthChallengeInput) (*cip.RespondToAuthChallengeOutput, error) {
		if in.ChallengeName != types.ChallengeNameTypePasswordVerifier {
			t.Fatalf("unexpected challenge name: %s", in.ChallengeName)
		}
		if aws.ToString(in.Session) != "sess-1" {
			t.Fatalf("session not passed through: %v", in.Session)
		}
		if in.ChallengeResponses["USERNAME"] != "internal-user-1" {
			t.Fatalf("unexpected challenge username: %v", in.ChallengeResponses)
		}
		if in.ChallengeResponses["PASSWORD_CLAIM_SECRET_BLOCK"] != secretBlock {
			t.Fatalf("secret block not echoed back")
		}
		if in.ChallengeResponses["PASSWORD_CLAIM_SIGNATURE"] == "" {
			t.Fatalf("missing password claim signature")
		}
		return &cip.RespondToAuthChallengeOutput{
			AuthenticationResult: authResult("1", true, 3600),
		}, nil
	}

	a := newTestAuthenticator(fake, time.Minute)
	ctx := context.Background()

	token, err := a.IDToken(ctx)
	if err != nil {
		t.Fatalf("IDToken: %v", err)
	}
	if token != "id-1" {
		t.Fatalf("unexpected id token: %q", token)
	}

	// Cached: a second call must not exchange again.
	if _, err := a.IDToken(ctx); err != nil {
		t.Fatalf("IDToken cached: %v", err)
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("expected one exchange, got %d", len(fake.inputs))
	}
}

func TestProactiveRefreshUsesRefreshToken(t *testing.T) {
	fake := &fakeCognito{}
	fake.initiate = func(in *cip.InitiateAuthInput) (*cip.InitiateAuthOutput, error) {
		switch in.AuthFlow {
		case types.AuthFlowTypeUserSrpAuth:
			return &cip.InitiateAuthOutput{AuthenticationResult: authResult("1", true, 3600)}, nil
		case types.AuthFlowTypeRefreshTokenAuth:
			if in.AuthParameters["REFRESH_TOKEN"] != "refresh-1" {
				t.Fatalf("unexpected refresh token: %v", in.AuthParameters)
			}
			for key := range in.AuthParameters {
				if strings.Contains(key, "PASSWORD") {
					t.Fatalf("password material sent on refresh: %s", key)
				}
			}
			return &cip.InitiateAuthOutput{AuthenticationResult: authResult("2", false, 3600)}, nil
		}
		t.Fatalf("unexpected auth flow: %s", in.AuthFlow)
		return nil, nil
	}

	// A margin longer than the token lifetime forces an exchange on
	// every call, which is how the proactive path is exercised.
	a := newTestAuthenticator(fake, 2*time.Hour)
	ctx := context.Background()

	if _, err := a.IDToken(ctx); err != nil {
		t.Fatalf("first IDToken: %v", err)
	}
	token, err := a.IDToken(ctx)
	if err != nil {
		t.Fatalf("second IDToken: %v", err)
	}
	if token != "id-2" {
		t.Fatalf("unexpected id token after refresh: %q", token)
	}

	flows := fake.flows()
	if len(flows) != 2 || flows[0] != types.AuthFlowTypeUserSrpAuth || flows[1] != types.AuthFlowTypeRefreshTokenAuth {
		t.Fatalf("unexpected flow sequence: %v", flows)
	}
	// The refresh response carries no refresh token; the held one stays.
	if a.refreshToken != "refresh-1" {
		t.Fatalf("refresh token not kept: %q", a.refreshToken)
	}
}

func TestRefreshRejectedFallsBackToLogin(t *testing.T) {
	fake := &fakeCognito{}
	fake.initiate = func(in *cip.InitiateAuthInput) (*cip.InitiateAuthOutput, error) {
		switch in.AuthFlow {
		case types.AuthFlowTypeRefreshTokenAuth:
			return nil, &types.NotAuthorizedException{Message: aws.String("Refresh Token has been revoked")}
		case types.AuthFlowTypeUserSrpAuth:
			return &cip.InitiateAuthOutput{AuthenticationResult: authResult("9", true, 3600)}, nil
		}
		t.Fatalf("unexpected auth flow: %s", in.AuthFlow)
		return nil, nil
	}

	a := newTestAuthenticator(fake, time.Minute)
	a.refreshToken = "stale-refresh"

	token, err := a.IDToken(context.Background())
	if err != nil {
		t.Fatalf("IDToken: %v", err)
	}
	if token != "id-9" {
		t.Fatalf("unexpected id token: %q", token)
	}

	flows := fake.flows()
	if len(flows) != 2 || flows[0] != types.AuthFlowTypeRefreshTokenAuth || flows[1] != types.AuthFlowTypeUserSrpAuth {
		t.Fatalf("unexpected flow sequence: %v", flows)
	}
	if a.refreshToken != "refresh-9" {
		t.Fatalf("refresh token not replaced: %q", a.refreshToken)
	}
}

func TestLoginRejectedTerminal(t *testing.T) {
	fake := &fakeCognito{}
	fake.initiate = func(in *cip.InitiateAuthInput) (*cip.InitiateAuthOutput, error) {
		return nil, &types.NotAuthorizedException{Message: aws.String("Incorrect username or password.")}
	}

	a := newTestAuthenticator(fake, time.Minute)
	_, err := a.IDToken(context.Background())

	var authErr AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if IsTransient(err) {
		t.Fatalf("rejected credentials must not be transient")
	}
}

func TestProviderErrorTransient(t *testing.T) {
	fake := &fakeCognito{}
	fake.initiate = func(in *cip.InitiateAuthInput) (*cip.InitiateAuthOutput, error) {
		return nil, errors.New("connection reset by peer")
	}

	a := newTestAuthenticator(fake, time.Minute)
	_, err := a.IDToken(context.Background())

	var transient TransientAuthError
	if !errors.As(err, &transient) {
		t.Fatalf("expected TransientAuthError, got %v", err)
	}
	if !IsTransient(err) {
		t.Fatalf("provider trouble should be transient")
	}
}

func TestConcurrentCallersOneExchange(t *testing.T) {
	fake := &fakeCognito{}
	fake.initiate = func(in *cip.InitiateAuthInput) (*cip.InitiateAuthOutput, error) {
		time.Sleep(30 * time.Millisecond)
		return &cip.InitiateAuthOutput{AuthenticationResult: authResult("1", true, 3600)}, nil
	}

	a := newTestAuthenticator(fake, time.Minute)

	var wg sync.WaitGroup
	tokens := make([]string, 4)
	errs := make([]error, 4)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = a.IDToken(context.Background())
		}(i)
	}
	wg.Wait()

	for i := range tokens {
		if errs[i] != nil {
			t.Fatalf("IDToken %d: %v", i, errs[i])
		}
		if tokens[i] != "id-1" {
			t.Fatalf("IDToken %d: unexpected token %q", i, tokens[i])
		}
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("expected exactly one exchange, got %d", len(fake.inputs))
	}
}
