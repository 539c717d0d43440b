//go:build integration

package secrets

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// Expects a dev Vault on localhost:8200 seeded with DB_PASS under both
// secret/data/portal (KV v2) and secret-v1/portal (KV v1).
var _ = Describe("Vault Integration", func() {
	DescribeTable("retrieves the database password",
		func(path string) {
			cfg := VaultConfig{
				Address: "http://localhost:8200",
				Token:   "dev-root-token",
				Path:    path,
			}

			client, err := cfg.CreateClient()
			Expect(err).NotTo(HaveOccurred())

			val, err := NewVaultProvider(client, cfg.Path).Resolve("DB_PASS")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("integration-db-pass"))
		},
		Entry("KV v2", "secret/data/portal"),
		Entry("KV v1", "secret-v1/portal"),
	)
})
