// pkg/middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"imgvault/config"
	"imgvault/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

const realm = `Basic realm="imgvault"`

type AuthMiddleware struct {
	config *config.Config
	log    *utils.Logger
}

func NewAuthMiddleware(config *config.Config, log *utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		config: config,
		log:    log,
	}
}

// Authenticate lets anonymous GET/HEAD through and requires basic auth for writes.
// Credentials sent on a read are still checked.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get(fiber.HeaderAuthorization)

		method := c.Method()
		if (method == fiber.MethodGet || method == fiber.MethodHead) && auth == "" {
			return c.Next()
		}

		if auth == "" {
			m.log.Warn("No authorization header")
			return m.unauthorized(c, "authentication required")
		}

		// Vérifier le format "Basic base64(username:password)"
		if !strings.HasPrefix(auth, "Basic ") {
			m.log.Warn("Invalid auth format")
			return m.unauthorized(c, "invalid authentication format")
		}

		credentials, err := base64.StdEncoding.DecodeString(auth[len("Basic "):])
		if err != nil {
			m.log.WithError(err).Warn("Failed to decode credentials")
			return m.unauthorized(c, "invalid credentials format")
		}

		username, password, ok := strings.Cut(string(credentials), ":")
		if !ok {
			m.log.Warn("Invalid credentials format")
			return m.unauthorized(c, "invalid credentials format")
		}

		m.log.WithField("total_users", len(m.config.Auth.Users)).Debug("Checking authentication")

		for _, user := range m.config.Auth.Users {
			userOK := subtle.ConstantTimeCompare([]byte(user.Username), []byte(username)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) == 1
			if userOK && passOK {
				m.log.WithField("username", username).Debug("User authenticated successfully")
				c.Locals("username", username)
				return c.Next()
			}
		}

		m.log.WithField("username", username).Warn("Authentication failed")
		return m.unauthorized(c, "invalid username or password")
	}
}

func (m *AuthMiddleware) unauthorized(c *fiber.Ctx, message string) error {
	c.Set(fiber.HeaderWWWAuthenticate, realm)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": message})
}
