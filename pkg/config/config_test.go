package config_test

import (
	"github.com/ejustice-portal/bootstrap/pkg/config"
	"github.com/ejustice-portal/bootstrap/pkg/config/environ"
	"github.com/ejustice-portal/bootstrap/pkg/config/secrets"
	"github.com/ejustice-portal/bootstrap/pkg/database"
	"github.com/ejustice-portal/bootstrap/pkg/encryption"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

type MockSecretLoader struct {
	Secrets map[string]string
}

func (m *MockSecretLoader) Resolve(key string) (string, error) {
	if val, ok := m.Secrets[key]; ok {
		return val, nil
	}
	return "", errors.New("secret not found")
}

func (m *MockSecretLoader) Name() string {
	return "mock"
}

var _ = Describe("Load", func() {
	It("applies every default on an empty environment", func() {
		cfg, err := config.Load(environ.New(nil), nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Database).To(Equal(database.DefaultDescriptor()))
		Expect(cfg.Encryption.Method).To(Equal(encryption.Method))
		Expect(cfg.Encryption.UsesFallbackKey()).To(BeTrue())
		Expect(cfg.Encryption.Key).To(Equal(encryption.FallbackKey()))
		Expect(cfg.App).To(Equal(config.AppSettings{Env: "development", Debug: false}))
	})

	It("reads the composite URL, key and app settings", func() {
		env := environ.New(map[string]string{
			"DATABASE_URL": "mysql://portal:pw@db:3307/cases",
			"DOC_ENC_KEY":  "k3y",
			"APP_ENV":      "staging",
			"APP_DEBUG":    "true",
		})

		cfg, err := config.Load(env, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Database.Host).To(Equal("db"))
		Expect(cfg.Database.Port).To(Equal(3307))
		Expect(cfg.Database.Database).To(Equal("cases"))
		Expect(cfg.Database.Source).To(Equal(database.SourceURL))
		Expect(cfg.Encryption.Key).To(Equal("k3y"))
		Expect(cfg.Encryption.UsesFallbackKey()).To(BeFalse())
		Expect(cfg.App).To(Equal(config.AppSettings{Env: "staging", Debug: true}))
	})

	DescribeTable("APP_DEBUG parsing",
		func(value string, expected bool) {
			cfg, err := config.Load(environ.New(map[string]string{"APP_DEBUG": value}), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.App.Debug).To(Equal(expected))
		},
		Entry("true", "true", true),
		Entry("one", "1", true),
		Entry("zero", "0", false),
		Entry("empty", "", false),
		Entry("false", "false", false),
		Entry("not a boolean", "yes please", false),
	)

	Context("with secret references", func() {
		var (
			env      environ.Snapshot
			registry *secrets.Registry
		)

		BeforeEach(func() {
			env = environ.New(map[string]string{
				"DB_HOST":            "${mock:db-host}",
				"DB_PASS":            "${mock:db-pass}",
				"DB_PORT":            "${mock:db-port}",
				"DB_USER":            "pa$$word-looking-user",
				"DOC_ENC_KEY":        "${env:PORTAL_DOC_KEY}",
				"PORTAL_DOC_KEY":     "from-env-reference",
				"UNRELATED_VARIABLE": "${mock:unknown}",
			})
			registry = secrets.NewRegistry(env)
			registry.Register("mock", &MockSecretLoader{Secrets: map[string]string{
				"db-host": "vault-db",
				"db-pass": "super-secret-value",
				"db-port": "3310",
			}})
		})

		It("resolves whole-value references before resolution", func() {
			cfg, err := config.Load(env, registry)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Database.Host).To(Equal("vault-db"))
			Expect(cfg.Database.Password).To(Equal("super-secret-value"))
			Expect(cfg.Database.Port).To(Equal(3310))
			Expect(cfg.Database.User).To(Equal("pa$$word-looking-user"))
			Expect(cfg.Encryption.Key).To(Equal("from-env-reference"))
		})

		It("fails when a reference cannot be resolved", func() {
			_, err := config.Load(environ.New(map[string]string{"DB_PASS": "${mock:missing}"}), registry)
			Expect(err).To(MatchError(ContainSubstring("failed to resolve DB_PASS")))
		})

		It("fails when the reference prefix is unknown", func() {
			_, err := config.Load(environ.New(map[string]string{"DB_PASS": "${vault:DB_PASS}"}), registry)
			Expect(err).To(MatchError(ContainSubstring(`no secret provider registered for prefix "vault"`)))
		})
	})

	Context("in production", func() {
		It("refuses the fallback encryption key", func() {
			_, err := config.Load(environ.New(map[string]string{"APP_ENV": "production"}), nil)
			Expect(err).To(MatchError(ContainSubstring("DOC_ENC_KEY must be set")))
		})

		It("accepts an explicit key", func() {
			env := environ.New(map[string]string{"APP_ENV": "production", "DOC_ENC_KEY": "k"})
			cfg, err := config.Load(env, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.App.IsProduction()).To(BeTrue())
		})
	})
})

var _ = Describe("Config copies", func() {
	var cfg *config.Config

	BeforeEach(func() {
		var err error
		cfg, err = config.Load(environ.New(map[string]string{
			"DATABASE_URL": "mysql://portal:pw@db:3307/cases",
			"DOC_ENC_KEY":  "k3y",
		}), nil)
		Expect(err).NotTo(HaveOccurred())
	})

	It("masks the password and key when redacted", func() {
		redacted := cfg.Redacted()
		Expect(redacted.Database.Password).To(Equal("****"))
		Expect(redacted.Encryption.Key).To(Equal("****"))

		Expect(cfg.Database.Password).To(Equal("pw"))
		Expect(cfg.Encryption.Key).To(Equal("k3y"))
	})

	It("clones independently", func() {
		clone := cfg.Clone()
		Expect(clone).To(Equal(cfg))
		Expect(clone).NotTo(BeIdenticalTo(cfg))

		clone.Database.Host = "other"
		Expect(cfg.Database.Host).To(Equal("db"))
	})
})
