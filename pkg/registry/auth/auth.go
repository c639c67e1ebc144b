// Package auth implements the registry's bearer-token challenge flow: it
// probes the registry's /v2/ endpoint, parses the WWW-Authenticate
// challenge, and exchanges it for a bearer token scoped to a repository.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/distribution/reference"
	"github.com/sirupsen/logrus"

	"github.com/lighthouse-dev/lighthouse/pkg/registry/helpers"
	"github.com/lighthouse-dev/lighthouse/pkg/types"
)

// ChallengeHeader is the HTTP header carrying challenge instructions.
const ChallengeHeader = "WWW-Authenticate"

// UserAgent identifies Lighthouse on probe requests to registries.
const UserAgent = "Lighthouse"

// Static errors for registry authentication failures.
var (
	// ErrUnsupportedChallenge indicates the registry challenged with a
	// scheme other than bearer (e.g. basic auth).
	ErrUnsupportedChallenge = errors.New("unsupported challenge type from registry")
	// ErrMalformedChallenge indicates a bearer challenge missing the realm
	// or service value needed to construct an auth URL.
	ErrMalformedChallenge = errors.New("challenge header did not include all values needed to construct an auth url")
	// ErrTokenFetch indicates the challenge header was absent entirely, or
	// the token exchange response lacked a usable token.
	ErrTokenFetch = errors.New("failed to fetch registry token")
)

// Quoted-value extraction for the challenge-parameter grammar.
var (
	realmPattern   = regexp.MustCompile(`realm="(.+?)"`)
	servicePattern = regexp.MustCompile(`service="(.+?)"`)
)

// Client executes HTTP requests against registries and authorization
// servers. It is satisfied by *http.Client and substitutable in tests.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// Challenge holds the realm and service extracted from a bearer challenge.
type Challenge struct {
	Realm   string
	Service string
}

// ParseChallenge extracts the realm and service from a WWW-Authenticate
// header value. It is a pure function of its input: non-bearer schemes
// yield ErrUnsupportedChallenge carrying the raw header for diagnostics,
// and bearer challenges missing either value yield ErrMalformedChallenge.
func ParseChallenge(header string) (Challenge, error) {
	if !strings.Contains(strings.ToLower(header), "bearer") {
		return Challenge{}, fmt.Errorf("%w: %q", ErrUnsupportedChallenge, header)
	}

	realm := realmPattern.FindStringSubmatch(header)
	service := servicePattern.FindStringSubmatch(header)

	if realm == nil || service == nil {
		return Challenge{}, fmt.Errorf("%w: %q", ErrMalformedChallenge, header)
	}

	return Challenge{Realm: realm[1], Service: service[1]}, nil
}

// GetToken obtains an Authorization header value for the registry hosting
// the given image. It probes the registry's /v2/ endpoint without
// credentials, parses the resulting challenge, and exchanges it for a
// bearer token scoped to the image's repository. A fresh token is fetched
// on every call; nothing is cached.
func GetToken(ctx context.Context, imageRef reference.Named, client Client) (string, error) {
	challengeURL := GetChallengeURL(imageRef)
	logrus.WithField("url", challengeURL.String()).Debug("Built challenge URL")

	req, err := GetChallengeRequest(ctx, challengeURL)
	if err != nil {
		return "", err
	}

	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	header := res.Header.Get(ChallengeHeader)
	logrus.WithFields(logrus.Fields{
		"status": res.Status,
		"header": header,
	}).Debug("Got response to challenge request")

	if header == "" {
		return "", fmt.Errorf(
			"%w: no %s header in probe response (status %s)",
			ErrTokenFetch, ChallengeHeader, res.Status,
		)
	}

	challenge, err := ParseChallenge(header)
	if err != nil {
		return "", err
	}

	scope := fmt.Sprintf("repository:%s:pull", reference.Path(imageRef))

	return FetchToken(ctx, challenge, scope, client)
}

// GetChallengeRequest creates the unauthenticated probe request used to
// discover the registry's challenge instructions.
func GetChallengeRequest(ctx context.Context, challengeURL url.URL) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, challengeURL.String(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", UserAgent)

	return req, nil
}

// FetchToken requests a bearer token from the challenge's realm for the
// given scope and returns it prefixed for use as an Authorization header.
// A response without a usable token yields ErrTokenFetch.
func FetchToken(ctx context.Context, challenge Challenge, scope string, client Client) (string, error) {
	authURL, err := GetAuthURL(challenge, scope)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL.String(), nil)
	if err != nil {
		return "", err
	}

	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	tokenResponse := &types.TokenResponse{}
	if err := json.Unmarshal(body, tokenResponse); err != nil {
		return "", err
	}

	if tokenResponse.Token == "" {
		logrus.WithFields(logrus.Fields{
			"url":    authURL.String(),
			"status": res.Status,
		}).Debug("Token exchange response contained no token")

		return "", fmt.Errorf("%w: response contained no token field", ErrTokenFetch)
	}

	return "Bearer " + tokenResponse.Token, nil
}

// GetAuthURL constructs the authorization-server URL from the challenge's
// realm with service and scope query parameters.
func GetAuthURL(challenge Challenge, scope string) (*url.URL, error) {
	authURL, err := url.Parse(challenge.Realm)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid realm %q", ErrMalformedChallenge, challenge.Realm)
	}

	q := authURL.Query()
	q.Add("service", challenge.Service)
	q.Add("scope", scope)
	authURL.RawQuery = q.Encode()

	logrus.WithFields(logrus.Fields{
		"realm":   challenge.Realm,
		"service": challenge.Service,
		"scope":   scope,
	}).Debug("Built auth URL from challenge")

	return authURL, nil
}

// GetChallengeURL generates the challenge URL for the registry hosting the
// given image. The registry address keeps an explicit port and never
// carries a path component beyond /v2/.
func GetChallengeURL(imageRef reference.Named) url.URL {
	host, _ := helpers.GetRegistryAddress(imageRef.Name())

	return url.URL{
		Scheme: "https",
		Host:   host,
		Path:   "/v2/",
	}
}
