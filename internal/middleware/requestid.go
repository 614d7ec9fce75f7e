package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	requestIDHeader = fiber.HeaderXRequestID
	requestIDLocal  = "request_id"
	// maxRequestIDLen caps caller supplied ids before they reach the logs.
	maxRequestIDLen = 128
)

// RequestID tags every request with an id. A caller supplied X-Request-ID is
// kept when it is short printable ASCII; otherwise a UUID is assigned. The id
// is echoed in the response.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(requestIDHeader)
		if !usableRequestID(id) {
			id = uuid.NewString()
		}
		c.Locals(requestIDLocal, id)
		c.Set(requestIDHeader, id)
		return c.Next()
	}
}

// RequestIDFrom returns the id RequestID assigned to the request.
func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDLocal).(string)
	return id
}

func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
