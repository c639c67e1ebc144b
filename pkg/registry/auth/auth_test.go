// Package auth_test verifies challenge parsing, auth URL construction, and
// the bearer token exchange against mock registries.
package auth_test

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/distribution/reference"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/lighthouse-dev/lighthouse/pkg/registry/auth"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Registry Auth Suite")
}

// insecureClient returns an HTTP client that accepts the self-signed
// certificates of httptest TLS servers.
func insecureClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

var _ = ginkgo.Describe("the auth module", func() {
	ginkgo.Describe("ParseChallenge", func() {
		ginkgo.It("should extract realm and service from a bearer challenge", func() {
			challenge, err := auth.ParseChallenge(
				`Bearer realm="https://auth.example/token",service="registry.example"`,
			)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(challenge.Realm).To(gomega.Equal("https://auth.example/token"))
			gomega.Expect(challenge.Service).To(gomega.Equal("registry.example"))
		})

		ginkgo.It("should extract the values regardless of attribute order", func() {
			challenge, err := auth.ParseChallenge(
				`Bearer service="registry.example",realm="https://auth.example/token"`,
			)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(challenge.Realm).To(gomega.Equal("https://auth.example/token"))
			gomega.Expect(challenge.Service).To(gomega.Equal("registry.example"))
		})

		ginkgo.It("should tolerate surrounding whitespace and extra attributes", func() {
			challenge, err := auth.ParseChallenge(
				`Bearer  realm="https://auth.example/token" , service="registry.example" , scope="repository:lib/app:pull"`,
			)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(challenge.Realm).To(gomega.Equal("https://auth.example/token"))
			gomega.Expect(challenge.Service).To(gomega.Equal("registry.example"))
		})

		ginkgo.It("should match the bearer scheme case-insensitively", func() {
			challenge, err := auth.ParseChallenge(
				`BEARER realm="https://auth.example/token",service="registry.example"`,
			)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(challenge.Service).To(gomega.Equal("registry.example"))
		})

		ginkgo.It("should reject non-bearer challenges", func() {
			_, err := auth.ParseChallenge(`Basic realm="registry"`)
			gomega.Expect(errors.Is(err, auth.ErrUnsupportedChallenge)).To(gomega.BeTrue())
			gomega.Expect(err.Error()).To(gomega.ContainSubstring(`Basic realm="registry"`))
		})

		ginkgo.It("should reject a bearer challenge missing the realm", func() {
			_, err := auth.ParseChallenge(`Bearer service="registry.example"`)
			gomega.Expect(errors.Is(err, auth.ErrMalformedChallenge)).To(gomega.BeTrue())
		})

		ginkgo.It("should reject a bearer challenge missing the service", func() {
			_, err := auth.ParseChallenge(`Bearer realm="https://auth.example/token"`)
			gomega.Expect(errors.Is(err, auth.ErrMalformedChallenge)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("GetAuthURL", func() {
		ginkgo.It("should build a URL with service and scope query parameters", func() {
			challenge := auth.Challenge{
				Realm:   "https://ghcr.io/token",
				Service: "ghcr.io",
			}
			authURL, err := auth.GetAuthURL(challenge, "repository:user/image:pull")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(authURL).To(gomega.Equal(&url.URL{
				Scheme:   "https",
				Host:     "ghcr.io",
				Path:     "/token",
				RawQuery: "scope=repository%3Auser%2Fimage%3Apull&service=ghcr.io",
			}))
		})
	})

	ginkgo.Describe("GetChallengeURL", func() {
		ginkgo.It("should build a /v2/ URL for the image's registry", func() {
			imageRef, _ := reference.ParseNormalizedNamed("ghcr.io/user/image:latest")
			gomega.Expect(auth.GetChallengeURL(imageRef)).To(gomega.Equal(url.URL{
				Scheme: "https",
				Host:   "ghcr.io",
				Path:   "/v2/",
			}))
		})

		ginkgo.It("should assume Docker Hub for image refs with no explicit registry", func() {
			imageRef, _ := reference.ParseNormalizedNamed("lib/app")
			gomega.Expect(auth.GetChallengeURL(imageRef)).To(gomega.Equal(url.URL{
				Scheme: "https",
				Host:   "index.docker.io",
				Path:   "/v2/",
			}))
		})

		ginkgo.It("should preserve an explicit port", func() {
			imageRef, _ := reference.ParseNormalizedNamed("host:5000/lib/app")
			gomega.Expect(auth.GetChallengeURL(imageRef).Host).To(gomega.Equal("host:5000"))
		})
	})

	ginkgo.Describe("GetChallengeRequest", func() {
		ginkgo.It("should create a GET request identifying Lighthouse", func() {
			challengeURL := url.URL{Scheme: "https", Host: "registry.example", Path: "/v2/"}
			req, err := auth.GetChallengeRequest(context.Background(), challengeURL)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(req.Method).To(gomega.Equal(http.MethodGet))
			gomega.Expect(req.URL.String()).To(gomega.Equal("https://registry.example/v2/"))
			gomega.Expect(req.Header.Get("User-Agent")).To(gomega.Equal("Lighthouse"))
			gomega.Expect(req.Header.Get("Accept")).To(gomega.Equal("*/*"))
		})
	})

	ginkgo.Describe("GetToken", func() {
		ginkgo.It("should fetch a bearer token through the full challenge flow", func() {
			mux := http.NewServeMux()
			server := httptest.NewTLSServer(mux)
			defer server.Close()

			serverAddr := server.Listener.Addr().String()
			mux.HandleFunc("/v2/", func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set(
					auth.ChallengeHeader,
					fmt.Sprintf(
						`Bearer realm="https://%s/token",service="registry.example"`,
						serverAddr,
					),
				)
				w.WriteHeader(http.StatusUnauthorized)
			})
			mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
				gomega.Expect(r.URL.Query().Get("service")).To(gomega.Equal("registry.example"))
				gomega.Expect(r.URL.Query().Get("scope")).
					To(gomega.Equal("repository:test/image:pull"))
				fmt.Fprint(w, `{"token": "mock-token"}`)
			})

			imageRef, _ := reference.ParseNormalizedNamed(serverAddr + "/test/image")
			token, err := auth.GetToken(context.Background(), imageRef, insecureClient())
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(token).To(gomega.Equal("Bearer mock-token"))
		})

		ginkgo.It("should fail with a token fetch error when the probe has no challenge header", func() {
			server := httptest.NewTLSServer(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusOK)
				}),
			)
			defer server.Close()

			imageRef, _ := reference.ParseNormalizedNamed(
				server.Listener.Addr().String() + "/test/image",
			)
			token, err := auth.GetToken(context.Background(), imageRef, insecureClient())
			gomega.Expect(errors.Is(err, auth.ErrTokenFetch)).To(gomega.BeTrue())
			gomega.Expect(token).To(gomega.Equal(""))
		})

		ginkgo.It("should fail with an unsupported challenge error for basic auth", func() {
			server := httptest.NewTLSServer(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set(auth.ChallengeHeader, `Basic realm="registry"`)
					w.WriteHeader(http.StatusUnauthorized)
				}),
			)
			defer server.Close()

			imageRef, _ := reference.ParseNormalizedNamed(
				server.Listener.Addr().String() + "/test/image",
			)
			_, err := auth.GetToken(context.Background(), imageRef, insecureClient())
			gomega.Expect(errors.Is(err, auth.ErrUnsupportedChallenge)).To(gomega.BeTrue())
		})

		ginkgo.It("should propagate transport errors", func() {
			imageRef, _ := reference.ParseNormalizedNamed("nonexistent.local/test/image")
			token, err := auth.GetToken(context.Background(), imageRef, insecureClient())
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(token).To(gomega.Equal(""))
		})
	})

	ginkgo.Describe("FetchToken", func() {
		ginkgo.It("should fail with a token fetch error when the response has no token field", func() {
			server := httptest.NewTLSServer(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					fmt.Fprint(w, `{}`)
				}),
			)
			defer server.Close()

			challenge := auth.Challenge{Realm: server.URL, Service: "registry.example"}
			token, err := auth.FetchToken(
				context.Background(),
				challenge,
				"repository:test/image:pull",
				insecureClient(),
			)
			gomega.Expect(errors.Is(err, auth.ErrTokenFetch)).To(gomega.BeTrue())
			gomega.Expect(token).To(gomega.Equal(""))
		})

		ginkgo.It("should fail on an invalid JSON response", func() {
			server := httptest.NewTLSServer(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					fmt.Fprint(w, `{"token": `)
				}),
			)
			defer server.Close()

			challenge := auth.Challenge{Realm: server.URL, Service: "registry.example"}
			_, err := auth.FetchToken(
				context.Background(),
				challenge,
				"repository:test/image:pull",
				insecureClient(),
			)
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})
})
