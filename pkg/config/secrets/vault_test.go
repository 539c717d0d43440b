package secrets

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Vault provider", func() {
	Context("VaultConfig Validate", func() {
		It("requires an address", func() {
			cfg := VaultConfig{Token: "token", Path: "secret/data/portal"}
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("Address")))
		})

		It("requires a token", func() {
			cfg := VaultConfig{Address: "http://localhost:8200", Path: "secret/data/portal"}
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("Token")))
		})

		It("requires a path", func() {
			cfg := VaultConfig{Address: "http://localhost:8200", Token: "token"}
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("Path")))
		})

		It("rejects an invalid address", func() {
			cfg := VaultConfig{Address: "://invalid-url", Token: "token", Path: "secret/data/portal"}
			_, err := cfg.CreateClient()
			Expect(err).To(HaveOccurred())
		})

		It("creates a client with a namespace", func() {
			cfg := VaultConfig{Address: "http://localhost:8200", Token: "token", Path: "secret/data/portal", Namespace: "courts"}
			client, err := cfg.CreateClient()
			Expect(err).NotTo(HaveOccurred())
			Expect(client.Namespace()).To(Equal("courts"))
			Expect(client.Token()).To(Equal("token"))
		})
	})

	Context("Resolve", func() {
		var server *httptest.Server

		newProvider := func(path string) *VaultProvider {
			client, err := VaultConfig{Address: server.URL, Token: "token", Path: path}.CreateClient()
			Expect(err).NotTo(HaveOccurred())
			return NewVaultProvider(client, path)
		}

		BeforeEach(func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				switch r.URL.Path {
				case "/v1/secret/data/portal":
					_, _ = w.Write([]byte(`{"data":{"data":{"DB_PASS":"kv2-pass"},"metadata":{"version":1}}}`))
				case "/v1/kv/portal":
					_, _ = w.Write([]byte(`{"data":{"DB_PASS":"kv1-pass"}}`))
				default:
					w.WriteHeader(http.StatusNotFound)
					_, _ = w.Write([]byte(`{"errors":[]}`))
				}
			}))
		})

		AfterEach(func() {
			server.Close()
		})

		It("reads KV v2 secrets", func() {
			Expect(newProvider("secret/data/portal").Resolve("DB_PASS")).To(Equal("kv2-pass"))
		})

		It("reads KV v1 secrets", func() {
			Expect(newProvider("kv/portal").Resolve("DB_PASS")).To(Equal("kv1-pass"))
		})

		It("reports a missing key", func() {
			_, err := newProvider("kv/portal").Resolve("DOC_ENC_KEY")
			Expect(err).To(MatchError(ContainSubstring(`secret "DOC_ENC_KEY" not found`)))
		})

		It("reports a missing path", func() {
			_, err := newProvider("kv/unknown").Resolve("DB_PASS")
			Expect(err).To(MatchError(ContainSubstring("no secret found")))
		})

		It("is named Vault", func() {
			Expect(newProvider("kv/portal").Name()).To(Equal("Vault"))
		})
	})
})
