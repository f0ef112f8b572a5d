package app

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// basicAuth guards a route with HTTP Basic credentials. An empty password
// leaves the route open.
func basicAuth(realm, username, password string) gin.HandlerFunc {
	if password == "" {
		return func(c *gin.Context) { c.Next() }
	}
	challenge := `Basic realm="` + realm + `"`

	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		// Compare both fields every time so timing does not reveal which one failed.
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
		if !ok || !userOK || !passOK {
			c.Header("WWW-Authenticate", challenge)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
